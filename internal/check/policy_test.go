package check

import "testing"

func TestSubgraphPolicyHelpers(t *testing.T) {
	cases := []struct {
		policy           SubgraphPolicy
		required         bool
		securityRequired bool
	}{
		{SubgraphNotDeclared, false, true},
		{SubgraphDeclaredSecure, true, true},
		{SubgraphDeclaredInsecure, true, false},
	}
	for _, tc := range cases {
		if got := tc.policy.Required(); got != tc.required {
			t.Fatalf("%s: Required()=%v, want %v", tc.policy, got, tc.required)
		}
		if got := tc.policy.SecurityRequired(); got != tc.securityRequired {
			t.Fatalf("%s: SecurityRequired()=%v, want %v", tc.policy, got, tc.securityRequired)
		}
	}
}

func TestSubgraphPolicyFor(t *testing.T) {
	if SubgraphPolicyFor(true, true) != SubgraphDeclaredInsecure {
		t.Fatalf("declared+insecure should map to SubgraphDeclaredInsecure")
	}
	if SubgraphPolicyFor(true, false) != SubgraphDeclaredSecure {
		t.Fatalf("declared should map to SubgraphDeclaredSecure")
	}
	if SubgraphPolicyFor(false, true) != SubgraphNotDeclared {
		t.Fatalf("undeclared maps to SubgraphNotDeclared regardless of insecure flag")
	}
}

func TestIntrospectionPolicyFrom(t *testing.T) {
	policy, finding := IntrospectionPolicyFrom("true", SubgraphNotDeclared)
	if policy != IntrospectionAllow || finding != nil {
		t.Fatalf("expected Allow, got %v %v", policy, finding)
	}
	policy, finding = IntrospectionPolicyFrom("false", SubgraphDeclaredSecure)
	if policy != IntrospectionDisallow || finding != nil {
		t.Fatalf("expected Disallow, got %v %v", policy, finding)
	}
	policy, _ = IntrospectionPolicyFrom("", SubgraphNotDeclared)
	if policy != IntrospectionDisallow {
		t.Fatalf("plain endpoints default to Disallow, got %v", policy)
	}
	policy, _ = IntrospectionPolicyFrom("", SubgraphDeclaredSecure)
	if policy != IntrospectionAllow {
		t.Fatalf("declared subgraphs default to Allow, got %v", policy)
	}
	_, finding = IntrospectionPolicyFrom("maybe", SubgraphNotDeclared)
	if finding == nil || finding.Kind != KindBadBoolean || finding.Field != "allow_introspection" {
		t.Fatalf("expected BadBoolean for allow_introspection, got %v", finding)
	}
}
