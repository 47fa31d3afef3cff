package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"gqlcheck/internal/check"
	"gqlcheck/internal/graphql"
)

// ScanManager owns the scan queue and a fixed pool of workers. Every scan,
// admin-created or quick, goes through the same queue so MaxParallelScans
// bounds outbound probe traffic.
type ScanManager struct {
	cfg        ServerConfig
	store      Store
	obs        *Observability
	queue      chan queuedScan
	wg         sync.WaitGroup
	quickLimit *ipRateLimiter
}

type ScannerService interface {
	CreateScan(request ScanRequest, principal Principal, source string) (ScanMeta, error)
	CreateQuickScan(request ScanRequest, ipHash, uaHash string) (ScanMeta, error)
}

type queuedScan struct {
	ScanID      string
	Request     ScanRequest
	Creator     Principal
	CreatorType string
	Source      string
}

func NewScanManager(cfg ServerConfig, store Store, obs *Observability) *ScanManager {
	maxParallel := cfg.Scans.MaxParallelScans
	if maxParallel <= 0 {
		maxParallel = 4
	}
	manager := &ScanManager{
		cfg:        cfg,
		store:      store,
		obs:        obs,
		queue:      make(chan queuedScan, maxParallel*8),
		quickLimit: newIPRateLimiter(cfg.Limits.QuickScanRPM),
	}
	for i := 0; i < maxParallel; i++ {
		manager.wg.Add(1)
		go func() {
			defer manager.wg.Done()
			manager.worker()
		}()
	}
	return manager
}

func (m *ScanManager) Shutdown() {
	close(m.queue)
	m.wg.Wait()
}

func (m *ScanManager) CreateScan(request ScanRequest, principal Principal, source string) (ScanMeta, error) {
	if err := validateScanRequest(&request, m.cfg); err != nil {
		return ScanMeta{}, err
	}
	scanID, err := randomID("scan")
	if err != nil {
		return ScanMeta{}, err
	}
	meta := ScanMeta{
		ScanID:      scanID,
		Status:      "queued",
		Source:      source,
		CreatorType: "admin",
		CreatorSub:  principal.Subject,
		Request:     request,
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateScan(meta); err != nil {
		return ScanMeta{}, err
	}
	_, _ = m.store.AppendScanEvent(scanID, "queue", "scan queued", map[string]any{
		"source": source,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		ScanID:    scanID,
		ActorType: "admin",
		ActorSub:  principal.Subject,
		Action:    "scan.create",
		Result:    "queued",
	})
	m.queue <- queuedScan{
		ScanID:      scanID,
		Request:     request,
		Creator:     principal,
		CreatorType: "admin",
		Source:      source,
	}
	return meta, nil
}

func (m *ScanManager) CreateQuickScan(request ScanRequest, ipHash, uaHash string) (ScanMeta, error) {
	if !m.quickLimit.Allow(ipHash) {
		if m.obs != nil {
			m.obs.MarkRateLimited(context.Background(), "quick_scan_rate_limit")
		}
		_ = m.store.AppendAudit(AuditEvent{
			Timestamp: nowRFC3339(),
			ActorType: "user",
			Action:    "quick_scan.reject",
			Result:    "rate_limited",
			IPHash:    ipHash,
			UAHash:    uaHash,
		})
		return ScanMeta{}, errors.New("quick scan rate limit reached")
	}
	// quick scans never carry a credential; they only answer "is this
	// endpoint open to the world"
	request.AuthHeader = ""
	if err := validateScanRequest(&request, m.cfg); err != nil {
		return ScanMeta{}, err
	}
	scanID, err := randomID("scan")
	if err != nil {
		return ScanMeta{}, err
	}
	meta := ScanMeta{
		ScanID:      scanID,
		Status:      "queued",
		Source:      "user.quick_scan",
		CreatorType: "user",
		Request:     request,
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateScan(meta); err != nil {
		return ScanMeta{}, err
	}
	_, _ = m.store.AppendScanEvent(scanID, "queue", "quick scan queued", map[string]any{
		"endpoint": request.URL,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		ScanID:    scanID,
		ActorType: "user",
		Action:    "quick_scan.create",
		Result:    "queued",
		IPHash:    ipHash,
		UAHash:    uaHash,
		Detail:    request.URL,
	})
	m.queue <- queuedScan{
		ScanID:      scanID,
		Request:     request,
		CreatorType: "user",
		Source:      "user.quick_scan",
	}
	return meta, nil
}

func validateScanRequest(request *ScanRequest, cfg ServerConfig) error {
	request.URL = strings.TrimSpace(request.URL)
	if request.URL == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(request.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.New("url must be an absolute http or https URL")
	}
	if request.TimeoutSec <= 0 {
		request.TimeoutSec = cfg.Scans.DefaultTimeoutSec
	}
	return nil
}

func (m *ScanManager) worker() {
	for queued := range m.queue {
		m.executeScan(queued)
	}
}

func (m *ScanManager) executeScan(queued queuedScan) {
	startedAt := nowRFC3339()
	start := time.Now()
	if _, err := m.store.UpdateScan(queued.ScanID, func(meta *ScanMeta) {
		meta.Status = "running"
		meta.StartedAt = startedAt
	}); err != nil {
		m.markScanError(queued, "store update failed: "+err.Error(), 0)
		return
	}
	_, _ = m.store.AppendScanEvent(queued.ScanID, "start", "scan started", nil)

	timeout := time.Duration(queued.Request.TimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := graphql.NewClient(graphql.Config{
		Timeout:   time.Duration(m.cfg.Probe.TimeoutSec) * time.Second,
		UserAgent: m.cfg.Probe.UserAgent,
	})

	// Malformed boolean inputs surface as findings rather than failing the
	// scan outright, the same way the CLI treats them.
	report := check.NewReport()
	subgraphRequired, finding := check.ParseBool(boolInput(queued.Request.Subgraph), "subgraph")
	if finding != nil {
		report.Add(*finding)
	}
	allowInsecure, finding := check.ParseBool(boolInput(queued.Request.InsecureSubgraph), "insecure_subgraph")
	if finding != nil {
		report.Add(*finding)
	}
	subgraphPolicy := check.SubgraphPolicyFor(subgraphRequired, allowInsecure)
	introspectionPolicy, finding := check.IntrospectionPolicyFrom(queued.Request.AllowIntrospection, subgraphPolicy)
	if finding != nil {
		report.Add(*finding)
	}

	cred := graphql.NewCredential(queued.Request.AuthHeader)
	for _, f := range check.Run(ctx, client, queued.Request.URL, cred, subgraphPolicy, introspectionPolicy).Findings() {
		report.Add(f)
	}

	durationMS := time.Since(start).Milliseconds()
	scanReport := reportFromFindings(queued.Request.URL, report, durationMS)
	status := "fail"
	if report.Empty() {
		status = "pass"
	}

	if _, err := m.store.UpdateScan(queued.ScanID, func(meta *ScanMeta) {
		meta.Status = status
		meta.FinishedAt = nowRFC3339()
		meta.Report = &scanReport
		meta.FindingCount = len(scanReport.Findings)
		if status == "fail" {
			meta.Error = report.String()
		}
	}); err != nil {
		m.markScanError(queued, "persist scan report: "+err.Error(), durationMS)
		return
	}
	_, _ = m.store.AppendScanEvent(queued.ScanID, "completed", "scan completed", map[string]any{
		"status":        status,
		"finding_count": len(scanReport.Findings),
		"duration_ms":   durationMS,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		ScanID:    queued.ScanID,
		ActorType: queued.CreatorType,
		ActorSub:  queued.Creator.Subject,
		Action:    "scan.completed",
		Result:    status,
		Detail:    queued.Request.URL,
	})
	if m.obs != nil {
		m.obs.MarkScan(ctx, status, durationMS)
		for _, f := range scanReport.Findings {
			m.obs.MarkFinding(ctx, f.Kind)
		}
	}
}

// markScanError records a scan that could not run to completion for
// operational reasons, as opposed to one that ran and found problems.
func (m *ScanManager) markScanError(queued queuedScan, detail string, durationMS int64) {
	slog.Error("scan execution failed", "scan_id", queued.ScanID, "error", detail)
	_, _ = m.store.UpdateScan(queued.ScanID, func(meta *ScanMeta) {
		meta.Status = "error"
		meta.FinishedAt = nowRFC3339()
		meta.Error = detail
	})
	_, _ = m.store.AppendScanEvent(queued.ScanID, "error", detail, nil)
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		ScanID:    queued.ScanID,
		ActorType: queued.CreatorType,
		ActorSub:  queued.Creator.Subject,
		Action:    "scan.completed",
		Result:    "error",
		Detail:    detail,
	})
	if m.obs != nil {
		m.obs.MarkScan(context.Background(), "error", durationMS)
	}
}

// boolInput mirrors the CLI flag defaults: an omitted boolean input means
// false, while a present-but-garbled one still reaches ParseBool so it can
// become a finding.
func boolInput(value string) string {
	if strings.TrimSpace(value) == "" {
		return "false"
	}
	return value
}

func randomID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}

type ipRateLimiter struct {
	mu      sync.Mutex
	rpm     int
	records map[string][]time.Time
}

func newIPRateLimiter(rpm int) *ipRateLimiter {
	if rpm <= 0 {
		rpm = 6
	}
	return &ipRateLimiter{
		rpm:     rpm,
		records: map[string][]time.Time{},
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.TrimSpace(key) == "" {
		key = "unknown"
	}
	now := time.Now()
	cutoff := now.Add(-1 * time.Minute)
	items := filterRecentTime(l.records[key], cutoff)
	if len(items) >= l.rpm {
		l.records[key] = items
		return false
	}
	items = append(items, now)
	l.records[key] = items
	return true
}

func filterRecentTime(items []time.Time, cutoff time.Time) []time.Time {
	out := items[:0]
	for _, item := range items {
		if item.After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

func hashString(input string) string {
	sum := sha256Sum(input)
	return sum[:16]
}

func sha256Sum(input string) string {
	hash := sha256.New()
	_, _ = hash.Write([]byte(input))
	return hex.EncodeToString(hash.Sum(nil))
}
