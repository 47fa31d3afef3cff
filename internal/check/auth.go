package check

import (
	"context"

	"gqlcheck/internal/graphql"
)

const basicQuery = "query{__typename}"

// basicSuccess reports whether the trivial query got a well-formed GraphQL
// answer: a success body with a string at data.__typename.
func basicSuccess(o graphql.Outcome) bool {
	if o.Kind != graphql.OutcomeSuccess {
		return false
	}
	_, ok := o.StringField("data", "__typename")
	return ok
}

// basicFinding maps a failed trivial-query outcome onto its finding. A
// success body that lacks data.__typename means the endpoint answered with
// something other than GraphQL.
func basicFinding(o graphql.Outcome) Finding {
	if o.Kind == graphql.OutcomeSuccess {
		return Finding{Kind: KindNotGraphQL}
	}
	return findingFromOutcome(o)
}

// CheckAuth probes the endpoint with the trivial query and decides whether
// the unauthenticated path is handled correctly. The unauthenticated probe
// always runs; when a credential is supplied an authenticated probe runs
// concurrently with it and any failure of that probe is surfaced verbatim.
//
// With a credential the unauthenticated probe is a security test: a
// GraphQL-level error or a bad status means authentication is enforced, a
// clean answer means it is not, and connectivity or protocol problems are
// reported as themselves. Without a credential the probe simply verifies
// that the endpoint is reachable and speaks GraphQL.
func CheckAuth(ctx context.Context, client *graphql.Client, endpoint string, cred *graphql.Credential) []Finding {
	unauthedCh := make(chan graphql.Outcome, 1)
	go func() {
		unauthedCh <- client.Probe(ctx, endpoint, nil, basicQuery)
	}()

	var findings []Finding
	if cred != nil {
		authed := client.Probe(ctx, endpoint, cred, basicQuery)
		if !basicSuccess(authed) {
			findings = append(findings, basicFinding(authed))
		}
	}
	unauthed := <-unauthedCh

	if cred == nil {
		if !basicSuccess(unauthed) {
			findings = append(findings, basicFinding(unauthed))
		}
		return findings
	}

	switch unauthed.Kind {
	case graphql.OutcomeGraphQLError, graphql.OutcomeBadStatus:
		// The server rejected the unauthenticated request: enforced.
	case graphql.OutcomeSuccess:
		if basicSuccess(unauthed) {
			findings = append(findings, Finding{Kind: KindAuthNotEnforced})
		} else {
			findings = append(findings, Finding{Kind: KindNotGraphQL})
		}
	default:
		findings = append(findings, findingFromOutcome(unauthed))
	}
	return findings
}
