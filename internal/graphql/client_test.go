package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"__typename":"Query"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), server.URL, nil, "query{__typename}")
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	name, ok := outcome.StringField("data", "__typename")
	if !ok || name != "Query" {
		t.Fatalf("expected data.__typename=Query, got %q ok=%v", name, ok)
	}
}

func TestProbeSendsCredentialHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	cred := NewCredential("Authorization: Bearer token123")
	outcome := client.Probe(context.Background(), server.URL, cred, "query{__typename}")
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %s", outcome.Kind)
	}
	if got != "Bearer token123" {
		t.Fatalf("expected trimmed header value, got %q", got)
	}
}

func TestProbeBadHeaderShortCircuits(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), server.URL, NewCredential("no-colon-here"), "query{__typename}")
	if outcome.Kind != OutcomeBadHeader {
		t.Fatalf("expected bad_header, got %s", outcome.Kind)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no network call, server saw %d requests", hits.Load())
	}
}

func TestProbeBadURL(t *testing.T) {
	client := NewClient(Config{})
	for _, endpoint := range []string{"example.test/graphql", "ftp://example.test", "://broken"} {
		outcome := client.Probe(context.Background(), endpoint, nil, "query{__typename}")
		if outcome.Kind != OutcomeBadURL {
			t.Fatalf("endpoint %q: expected bad_url, got %s", endpoint, outcome.Kind)
		}
	}
}

func TestProbeConnectFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), endpoint, nil, "query{__typename}")
	if outcome.Kind != OutcomeConnectFailure {
		t.Fatalf("expected connect_failure, got %s", outcome.Kind)
	}
}

func TestProbeBadStatusBeforeBodyParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte("<html>not json at all</html>"))
	}))
	defer server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), server.URL, nil, "query{__typename}")
	if outcome.Kind != OutcomeBadStatus {
		t.Fatalf("expected bad_status, got %s", outcome.Kind)
	}
	if outcome.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", outcome.StatusCode)
	}
}

func TestProbeNotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), server.URL, nil, "query{__typename}")
	if outcome.Kind != OutcomeNotJSON {
		t.Fatalf("expected not_json, got %s", outcome.Kind)
	}
}

func TestProbeGraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	outcome := client.Probe(context.Background(), server.URL, nil, "query{__typename}")
	if outcome.Kind != OutcomeGraphQLError {
		t.Fatalf("expected graphql_error, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Errors, "unauthorized") {
		t.Fatalf("expected serialized errors payload, got %q", outcome.Errors)
	}
}

func TestProbeSendsQueryBody(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		gotQuery = payload.Query
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	client.Probe(context.Background(), server.URL, nil, "query{_service{sdl}}")
	if gotQuery != "query{_service{sdl}}" {
		t.Fatalf("expected query body to be forwarded, got %q", gotQuery)
	}
}
