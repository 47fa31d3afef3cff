package check

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gqlcheck/internal/graphql"
)

// fakeEndpoint emulates a GraphQL server with configurable auth, subgraph
// and introspection behavior, keyed off the probe queries.
type fakeEndpoint struct {
	requireAuth   bool
	authValue     string // accepted Authorization value when requireAuth
	rejectWith    int    // HTTP status for rejected unauthenticated calls; 0 = GraphQL error payload
	subgraph      bool
	introspection bool
}

func (f fakeEndpoint) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode probe body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		if f.requireAuth && r.Header.Get("Authorization") != f.authValue {
			if f.rejectWith != 0 {
				w.WriteHeader(f.rejectWith)
				_, _ = w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
			return
		}

		switch {
		case strings.Contains(payload.Query, "_service"):
			if f.subgraph {
				_, _ = w.Write([]byte(`{"data":{"_service":{"sdl":"type Query { ok: Boolean }"}}}`))
			} else {
				_, _ = w.Write([]byte(`{"errors":[{"message":"Cannot query field \"_service\""}]}`))
			}
		case strings.Contains(payload.Query, "__schema"):
			if f.introspection {
				_, _ = w.Write([]byte(`{"data":{"__schema":{"types":[{"name":"Query"}]}}}`))
			} else {
				_, _ = w.Write([]byte(`{"errors":[{"message":"introspection is disabled"}]}`))
			}
		default:
			_, _ = w.Write([]byte(`{"data":{"__typename":"Query"}}`))
		}
	}))
}

func testClient() *graphql.Client {
	return graphql.NewClient(graphql.Config{})
}

func testCredential(raw string) *graphql.Credential {
	return graphql.NewCredential(raw)
}

func kinds(findings []Finding) []Kind {
	out := make([]Kind, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Kind)
	}
	return out
}
