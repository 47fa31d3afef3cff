package check

import (
	"fmt"

	"gqlcheck/internal/graphql"
)

type Kind int

const (
	KindBadURL Kind = iota
	KindBadStatus
	KindCouldNotConnect
	KindNotGraphQL
	KindGraphQLError
	KindAuthNotEnforced
	KindBadHeader
	KindNotASubgraph
	KindInsecureSubgraph
	KindIntrospectionEnabled
	KindBadBoolean
)

func (k Kind) String() string {
	switch k {
	case KindBadURL:
		return "bad_uri"
	case KindBadStatus:
		return "bad_status"
	case KindCouldNotConnect:
		return "could_not_connect"
	case KindNotGraphQL:
		return "not_graphql"
	case KindGraphQLError:
		return "graphql_error"
	case KindAuthNotEnforced:
		return "auth_not_enforced"
	case KindBadHeader:
		return "bad_header"
	case KindNotASubgraph:
		return "not_a_subgraph"
	case KindInsecureSubgraph:
		return "insecure_subgraph"
	case KindIntrospectionEnabled:
		return "introspection_enabled"
	case KindBadBoolean:
		return "bad_boolean"
	}
	return "unknown"
}

// Finding is one reported problem. Findings are plain comparable values so
// reports can de-duplicate them and tests can compare them directly.
type Finding struct {
	Kind       Kind
	StatusCode int    // set for KindBadStatus
	Message    string // set for KindGraphQLError
	Field      string // set for KindBadBoolean
}

func (f Finding) String() string {
	switch f.Kind {
	case KindBadURL:
		return "Bad URI"
	case KindBadStatus:
		return fmt.Sprintf("Got status code: %d", f.StatusCode)
	case KindCouldNotConnect:
		return "Could not connect"
	case KindNotGraphQL:
		return "Not GraphQL"
	case KindGraphQLError:
		return fmt.Sprintf("Received error from GraphQL server: %s", f.Message)
	case KindAuthNotEnforced:
		return "Able to make queries with no authentication header"
	case KindBadHeader:
		return "Provided `auth` input was not a valid header in the format of `name: value`"
	case KindNotASubgraph:
		return "GraphQL endpoint is not a subgraph"
	case KindInsecureSubgraph:
		return "Subgraph is not protected by authentication"
	case KindIntrospectionEnabled:
		return "Introspection is enabled for the GraphQL server but not allowed"
	case KindBadBoolean:
		return fmt.Sprintf("Input `%s` can only be `true` or `false`", f.Field)
	}
	return "Unknown finding"
}

// findingFromOutcome maps a failed probe outcome onto its finding. Success
// outcomes have no single mapping; each check interprets them itself.
func findingFromOutcome(o graphql.Outcome) Finding {
	switch o.Kind {
	case graphql.OutcomeBadURL:
		return Finding{Kind: KindBadURL}
	case graphql.OutcomeBadHeader:
		return Finding{Kind: KindBadHeader}
	case graphql.OutcomeConnectFailure:
		return Finding{Kind: KindCouldNotConnect}
	case graphql.OutcomeBadStatus:
		return Finding{Kind: KindBadStatus, StatusCode: o.StatusCode}
	case graphql.OutcomeGraphQLError:
		return Finding{Kind: KindGraphQLError, Message: o.Errors}
	default:
		return Finding{Kind: KindNotGraphQL}
	}
}

// ParseBool converts a textual boolean input. Anything but the literals
// "true" and "false" yields a BadBoolean finding for the named field.
func ParseBool(value, field string) (bool, *Finding) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &Finding{Kind: KindBadBoolean, Field: field}
	}
}
