package check

import (
	"strings"
	"testing"
)

func TestFindingMessages(t *testing.T) {
	cases := []struct {
		finding Finding
		want    string
	}{
		{Finding{Kind: KindBadURL}, "Bad URI"},
		{Finding{Kind: KindBadStatus, StatusCode: 405}, "Got status code: 405"},
		{Finding{Kind: KindCouldNotConnect}, "Could not connect"},
		{Finding{Kind: KindNotGraphQL}, "Not GraphQL"},
		{Finding{Kind: KindAuthNotEnforced}, "Able to make queries with no authentication header"},
		{Finding{Kind: KindNotASubgraph}, "GraphQL endpoint is not a subgraph"},
		{Finding{Kind: KindInsecureSubgraph}, "Subgraph is not protected by authentication"},
		{Finding{Kind: KindIntrospectionEnabled}, "Introspection is enabled for the GraphQL server but not allowed"},
		{Finding{Kind: KindBadBoolean, Field: "subgraph"}, "Input `subgraph` can only be `true` or `false`"},
	}
	for _, tc := range cases {
		if got := tc.finding.String(); got != tc.want {
			t.Fatalf("finding %v: got %q, want %q", tc.finding.Kind, got, tc.want)
		}
	}
	if got := (Finding{Kind: KindGraphQLError, Message: `[{"message":"nope"}]`}).String(); !strings.Contains(got, "nope") {
		t.Fatalf("GraphQLError message should carry the payload, got %q", got)
	}
}

func TestParseBool(t *testing.T) {
	value, finding := ParseBool("true", "subgraph")
	if !value || finding != nil {
		t.Fatalf("expected true with no finding, got %v %v", value, finding)
	}
	value, finding = ParseBool("false", "subgraph")
	if value || finding != nil {
		t.Fatalf("expected false with no finding, got %v %v", value, finding)
	}
	_, finding = ParseBool("yes", "insecure_subgraph")
	if finding == nil || finding.Kind != KindBadBoolean || finding.Field != "insecure_subgraph" {
		t.Fatalf("expected BadBoolean for insecure_subgraph, got %v", finding)
	}
}
