package server

import (
	"time"

	"gqlcheck/internal/check"
)

type Principal struct {
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ScanRequest describes one requested posture scan. The boolean-like inputs
// arrive as strings so that malformed values surface as BadBoolean findings
// instead of JSON decode errors, matching the CLI behavior.
type ScanRequest struct {
	URL                string `json:"url"`
	AuthHeader         string `json:"auth_header,omitempty"`
	Subgraph           string `json:"subgraph,omitempty"`
	InsecureSubgraph   string `json:"insecure_subgraph,omitempty"`
	AllowIntrospection string `json:"allow_introspection,omitempty"`
	TimeoutSec         int    `json:"timeout_sec,omitempty"`
}

type FindingRecord struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Field      string `json:"field,omitempty"`
}

// ScanReport is the persisted form of one finished scan.
type ScanReport struct {
	GeneratedAt string          `json:"generated_at"`
	Endpoint    string          `json:"endpoint"`
	Passed      bool            `json:"passed"`
	Findings    []FindingRecord `json:"findings"`
	DurationMS  int64           `json:"duration_ms"`
}

func reportFromFindings(endpoint string, report *check.Report, durationMS int64) ScanReport {
	out := ScanReport{
		GeneratedAt: nowRFC3339(),
		Endpoint:    endpoint,
		Passed:      report.Empty(),
		Findings:    []FindingRecord{},
		DurationMS:  durationMS,
	}
	for _, f := range report.Findings() {
		out.Findings = append(out.Findings, FindingRecord{
			Kind:       f.Kind.String(),
			Message:    f.String(),
			StatusCode: f.StatusCode,
			Field:      f.Field,
		})
	}
	return out
}

type ScanMeta struct {
	ScanID       string      `json:"scan_id"`
	Status       string      `json:"status"`
	CreatorType  string      `json:"creator_type"`
	CreatorSub   string      `json:"creator_sub,omitempty"`
	Source       string      `json:"source"`
	Request      ScanRequest `json:"request"`
	StartedAt    string      `json:"started_at,omitempty"`
	FinishedAt   string      `json:"finished_at,omitempty"`
	CreatedAt    string      `json:"created_at"`
	Error        string      `json:"error,omitempty"`
	Report       *ScanReport `json:"report,omitempty"`
	FindingCount int         `json:"finding_count"`
}

type ScanEvent struct {
	Seq       int64          `json:"seq"`
	Timestamp string         `json:"timestamp"`
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	ScanID    string `json:"scan_id,omitempty"`
	ActorType string `json:"actor_type"`
	ActorSub  string `json:"actor_sub,omitempty"`
	Action    string `json:"action"`
	Result    string `json:"result"`
	IPHash    string `json:"ip_hash,omitempty"`
	UAHash    string `json:"ua_hash,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type MetricsOverview struct {
	GeneratedAt     string         `json:"generated_at"`
	TotalScans      int            `json:"total_scans"`
	RunningScans    int            `json:"running_scans"`
	PassScans       int            `json:"pass_scans"`
	FailScans       int            `json:"fail_scans"`
	ErrorScans      int            `json:"error_scans"`
	AverageDuration int64          `json:"average_duration_ms"`
	TotalFindings   int            `json:"total_findings"`
	FindingsByKind  map[string]int `json:"findings_by_kind"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
