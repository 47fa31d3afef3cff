package check

import "strings"

// Report is the ordered, duplicate-free set of findings from one run.
// It starts empty, is appended to as checks complete, and is never reduced:
// a finding added once stays in.
type Report struct {
	findings []Finding
	seen     map[Finding]struct{}
}

func NewReport() *Report {
	return &Report{seen: map[Finding]struct{}{}}
}

// Add appends a finding unless an identical one was already recorded.
// First occurrence wins, so output order stays deterministic.
func (r *Report) Add(f Finding) {
	if r.seen == nil {
		r.seen = map[Finding]struct{}{}
	}
	if _, dup := r.seen[f]; dup {
		return
	}
	r.seen[f] = struct{}{}
	r.findings = append(r.findings, f)
}

func (r *Report) Empty() bool {
	return len(r.findings) == 0
}

func (r *Report) Len() int {
	return len(r.findings)
}

// Findings returns the recorded findings in first-seen order.
func (r *Report) Findings() []Finding {
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)
	return out
}

func (r *Report) Messages() []string {
	out := make([]string, 0, len(r.findings))
	for _, f := range r.findings {
		out = append(out, f.String())
	}
	return out
}

// String joins the finding messages with ", " for one-line rendering.
func (r *Report) String() string {
	return strings.Join(r.Messages(), ", ")
}
