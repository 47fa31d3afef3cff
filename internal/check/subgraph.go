package check

import (
	"context"

	"gqlcheck/internal/graphql"
)

const subgraphQuery = "query{_service{sdl}}"

// CheckSubgraph probes the endpoint with the federation service query. Any
// well-formed, non-error JSON answer marks the endpoint as a subgraph. A
// failed probe is only a finding when the caller declared the endpoint to
// be a subgraph; declaring nothing and not being one is fine.
func CheckSubgraph(ctx context.Context, client *graphql.Client, endpoint string, cred *graphql.Credential, policy SubgraphPolicy) (isSubgraph bool, finding *Finding) {
	outcome := client.Probe(ctx, endpoint, cred, subgraphQuery)
	if outcome.Kind == graphql.OutcomeSuccess {
		return true, nil
	}
	if policy.Required() {
		return false, &Finding{Kind: KindNotASubgraph}
	}
	return false, nil
}
