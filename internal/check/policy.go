package check

// SubgraphPolicy states what the caller declared about the endpoint's role
// in a federated graph.
type SubgraphPolicy int

const (
	// SubgraphNotDeclared: the caller made no subgraph claim. A reachable
	// subgraph is still expected to be protected.
	SubgraphNotDeclared SubgraphPolicy = iota
	// SubgraphDeclaredSecure: the endpoint must be a subgraph and must
	// require authentication.
	SubgraphDeclaredSecure
	// SubgraphDeclaredInsecure: the endpoint must be a subgraph and is
	// allowed to answer unauthenticated requests.
	SubgraphDeclaredInsecure
)

// Required reports whether a failed subgraph probe is a finding.
func (p SubgraphPolicy) Required() bool {
	return p == SubgraphDeclaredSecure || p == SubgraphDeclaredInsecure
}

// SecurityRequired reports whether an unauthenticated subgraph is a finding.
func (p SubgraphPolicy) SecurityRequired() bool {
	return p == SubgraphDeclaredSecure || p == SubgraphNotDeclared
}

func (p SubgraphPolicy) String() string {
	switch p {
	case SubgraphDeclaredSecure:
		return "declared_secure"
	case SubgraphDeclaredInsecure:
		return "declared_insecure"
	default:
		return "not_declared"
	}
}

// SubgraphPolicyFor combines the two boolean inputs of the front-ends.
func SubgraphPolicyFor(declared, allowInsecure bool) SubgraphPolicy {
	switch {
	case declared && allowInsecure:
		return SubgraphDeclaredInsecure
	case declared:
		return SubgraphDeclaredSecure
	default:
		return SubgraphNotDeclared
	}
}

type IntrospectionPolicy int

const (
	IntrospectionAllow IntrospectionPolicy = iota
	IntrospectionDisallow
)

func (p IntrospectionPolicy) String() string {
	if p == IntrospectionDisallow {
		return "disallow"
	}
	return "allow"
}

// IntrospectionPolicyFrom parses the tri-state front-end input. An empty
// value defaults to Disallow for plain endpoints and Allow for declared
// subgraphs, which routinely expose their SDL to the router.
func IntrospectionPolicyFrom(value string, subgraph SubgraphPolicy) (IntrospectionPolicy, *Finding) {
	switch value {
	case "true":
		return IntrospectionAllow, nil
	case "false":
		return IntrospectionDisallow, nil
	case "":
		if subgraph.Required() {
			return IntrospectionAllow, nil
		}
		return IntrospectionDisallow, nil
	default:
		return IntrospectionAllow, &Finding{Kind: KindBadBoolean, Field: "allow_introspection"}
	}
}
