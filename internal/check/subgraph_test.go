package check

import (
	"context"
	"testing"
)

func TestCheckSubgraphDetected(t *testing.T) {
	server := fakeEndpoint{subgraph: true}.server(t)
	defer server.Close()

	isSubgraph, finding := CheckSubgraph(context.Background(), testClient(), server.URL, nil, SubgraphNotDeclared)
	if !isSubgraph {
		t.Fatalf("expected subgraph detection")
	}
	if finding != nil {
		t.Fatalf("expected no finding, got %v", finding)
	}
}

func TestCheckSubgraphNotDeclaredSilent(t *testing.T) {
	server := fakeEndpoint{}.server(t)
	defer server.Close()

	isSubgraph, finding := CheckSubgraph(context.Background(), testClient(), server.URL, nil, SubgraphNotDeclared)
	if isSubgraph {
		t.Fatalf("expected not a subgraph")
	}
	if finding != nil {
		t.Fatalf("undeclared non-subgraph is not a finding, got %v", finding)
	}
}

func TestCheckSubgraphDeclaredButMissing(t *testing.T) {
	server := fakeEndpoint{}.server(t)
	defer server.Close()

	for _, policy := range []SubgraphPolicy{SubgraphDeclaredSecure, SubgraphDeclaredInsecure} {
		isSubgraph, finding := CheckSubgraph(context.Background(), testClient(), server.URL, nil, policy)
		if isSubgraph {
			t.Fatalf("policy %s: expected not a subgraph", policy)
		}
		if finding == nil || finding.Kind != KindNotASubgraph {
			t.Fatalf("policy %s: expected NotASubgraph, got %v", policy, finding)
		}
	}
}

func TestCheckSubgraphUsesCredential(t *testing.T) {
	server := fakeEndpoint{requireAuth: true, authValue: "Bearer good", subgraph: true}.server(t)
	defer server.Close()

	cred := testCredential("Authorization: Bearer good")
	isSubgraph, finding := CheckSubgraph(context.Background(), testClient(), server.URL, cred, SubgraphDeclaredSecure)
	if !isSubgraph || finding != nil {
		t.Fatalf("expected authenticated subgraph detection, got isSubgraph=%v finding=%v", isSubgraph, finding)
	}
}
