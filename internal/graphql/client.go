package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Client issues fixed-query GraphQL probes over HTTP POST and classifies
// each response into an Outcome. It holds no per-probe state, so a single
// client may serve concurrent probes.
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

type probePayload struct {
	Query string `json:"query"`
}

// Probe sends one POST request with body {"query": <query>} and the optional
// credential header, and collapses the result into exactly one Outcome.
// A malformed credential or URL short-circuits before any network call.
// No retries happen at this layer; classification is final per call.
func (c *Client) Probe(ctx context.Context, endpoint string, cred *Credential, query string) Outcome {
	var headerName, headerValue string
	if cred != nil {
		name, value, err := cred.Header()
		if err != nil {
			return Outcome{Kind: OutcomeBadHeader}
		}
		headerName, headerValue = name, value
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Outcome{Kind: OutcomeBadURL}
	}

	payload, err := json.Marshal(probePayload{Query: query})
	if err != nil {
		return Outcome{Kind: OutcomeBadURL}
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, parsed.String(), bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: OutcomeBadURL}
	}
	request.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}
	if headerName != "" {
		request.Header.Set(headerName, headerValue)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return Outcome{Kind: OutcomeConnectFailure}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return Outcome{Kind: OutcomeConnectFailure}
	}

	// Status is checked before the body: a non-2xx response with a non-JSON
	// body is a bad status, not a bad body.
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Outcome{Kind: OutcomeBadStatus, StatusCode: response.StatusCode}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Outcome{Kind: OutcomeNotJSON}
	}

	if obj, ok := decoded.(map[string]any); ok {
		if errorsValue, present := obj["errors"]; present {
			serialized, marshalErr := json.Marshal(errorsValue)
			if marshalErr != nil {
				serialized = []byte(strings.TrimSpace(string(body)))
			}
			return Outcome{Kind: OutcomeGraphQLError, Errors: string(serialized)}
		}
	}
	return Outcome{Kind: OutcomeSuccess, Body: decoded}
}
