package graphql

import (
	"errors"
	"strings"
)

// ErrBadHeader reports a credential that is not in "name: value" form.
var ErrBadHeader = errors.New("credential is not a valid header")

// Credential is an optional raw authorization header in "name: value" form.
// It is immutable after construction and safe to share between concurrent
// probes; validation happens lazily on first use.
type Credential struct {
	raw string
}

// NewCredential wraps a raw header string. An empty string means no
// credential and yields nil.
func NewCredential(raw string) *Credential {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return &Credential{raw: raw}
}

// Header splits the credential on the first colon into a header name and a
// whitespace-trimmed value.
func (c *Credential) Header() (name, value string, err error) {
	name, value, ok := strings.Cut(c.raw, ":")
	if !ok {
		return "", "", ErrBadHeader
	}
	return name, strings.TrimSpace(value), nil
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeBadURL
	OutcomeBadHeader
	OutcomeConnectFailure
	OutcomeBadStatus
	OutcomeNotJSON
	OutcomeGraphQLError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBadURL:
		return "bad_url"
	case OutcomeBadHeader:
		return "bad_header"
	case OutcomeConnectFailure:
		return "connect_failure"
	case OutcomeBadStatus:
		return "bad_status"
	case OutcomeNotJSON:
		return "not_json"
	case OutcomeGraphQLError:
		return "graphql_error"
	}
	return "unknown"
}

// Outcome is the classified result of one probe. Exactly one variant applies
// per probe; downstream checks never look at raw bytes or status codes.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int    // set for OutcomeBadStatus
	Errors     string // serialized "errors" value for OutcomeGraphQLError
	Body       any    // parsed JSON body for OutcomeSuccess
}

// Field walks the parsed body along the given object keys. The second return
// is false when any step is missing or not an object.
func (o Outcome) Field(path ...string) (any, bool) {
	current := o.Body
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// StringField returns the string at the given path, or false when the value
// is absent or not a string.
func (o Outcome) StringField(path ...string) (string, bool) {
	value, ok := o.Field(path...)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// ObjectField returns true when the value at the given path is a non-null
// JSON object.
func (o Outcome) ObjectField(path ...string) bool {
	value, ok := o.Field(path...)
	if !ok {
		return false
	}
	_, isObject := value.(map[string]any)
	return isObject
}
