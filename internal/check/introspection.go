package check

import (
	"context"

	"gqlcheck/internal/graphql"
)

const introspectionQuery = "query{__schema{types{name}}}"

// CheckIntrospection probes the endpoint with the schema meta-query. Only
// called when introspection is disallowed. A populated data.__schema object
// means introspection is exposed; a GraphQL-level error is proof the server
// rejected the query and counts as disabled. Connectivity and protocol
// problems are not swallowed.
func CheckIntrospection(ctx context.Context, client *graphql.Client, endpoint string, cred *graphql.Credential) *Finding {
	outcome := client.Probe(ctx, endpoint, cred, introspectionQuery)
	switch outcome.Kind {
	case graphql.OutcomeSuccess:
		if outcome.ObjectField("data", "__schema") {
			return &Finding{Kind: KindIntrospectionEnabled}
		}
		return nil
	case graphql.OutcomeGraphQLError:
		return nil
	default:
		f := findingFromOutcome(outcome)
		return &f
	}
}
