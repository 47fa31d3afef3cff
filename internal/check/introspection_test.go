package check

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckIntrospectionEnabled(t *testing.T) {
	server := fakeEndpoint{introspection: true}.server(t)
	defer server.Close()

	finding := CheckIntrospection(context.Background(), testClient(), server.URL, nil)
	if finding == nil || finding.Kind != KindIntrospectionEnabled {
		t.Fatalf("expected IntrospectionEnabled, got %v", finding)
	}
}

func TestCheckIntrospectionRejectedIsDisabled(t *testing.T) {
	server := fakeEndpoint{}.server(t)
	defer server.Close()

	if finding := CheckIntrospection(context.Background(), testClient(), server.URL, nil); finding != nil {
		t.Fatalf("a GraphQL-level rejection proves introspection is off, got %v", finding)
	}
}

func TestCheckIntrospectionNullSchemaIsDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"__schema":null}}`))
	}))
	defer server.Close()

	if finding := CheckIntrospection(context.Background(), testClient(), server.URL, nil); finding != nil {
		t.Fatalf("null __schema is not exposure, got %v", finding)
	}
}

func TestCheckIntrospectionConnectivityNotSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	finding := CheckIntrospection(context.Background(), testClient(), server.URL, nil)
	if finding == nil || finding.Kind != KindBadStatus || finding.StatusCode != 502 {
		t.Fatalf("expected BadStatus 502, got %v", finding)
	}
}
