package check

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gqlcheck/internal/graphql"
)

// Run executes the three checks against one endpoint and aggregates their
// findings. The checks have no data dependencies and run concurrently; the
// report is assembled only after all of them have joined, in a fixed logical
// order, so the result is deterministic regardless of completion order.
// An empty report means the endpoint passed.
func Run(ctx context.Context, client *graphql.Client, endpoint string, cred *graphql.Credential, subgraph SubgraphPolicy, introspection IntrospectionPolicy) *Report {
	var (
		authFindings []Finding
		isSubgraph   bool
		subgraphFind *Finding
		introFind    *Finding
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		authFindings = CheckAuth(groupCtx, client, endpoint, cred)
		return nil
	})
	group.Go(func() error {
		isSubgraph, subgraphFind = CheckSubgraph(groupCtx, client, endpoint, cred, subgraph)
		return nil
	})
	if introspection == IntrospectionDisallow {
		group.Go(func() error {
			introFind = CheckIntrospection(groupCtx, client, endpoint, cred)
			return nil
		})
	}
	_ = group.Wait()

	report := NewReport()
	for _, f := range authFindings {
		report.Add(f)
	}
	if subgraphFind != nil {
		report.Add(*subgraphFind)
	}
	// An endpoint that behaves as a subgraph and answers without credentials
	// is insecure unless the caller explicitly allowed that. Undeclared
	// subgraphs are always expected to be protected.
	if isSubgraph && cred == nil && subgraph.SecurityRequired() {
		report.Add(Finding{Kind: KindInsecureSubgraph})
	}
	if introFind != nil {
		report.Add(*introFind)
	}
	return report
}
