package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type API struct {
	auth    *Auth
	store   Store
	scanner ScannerService
	obs     *Observability
}

func NewAPI(auth *Auth, store Store, scanner ScannerService, obs *Observability) *API {
	return &API{
		auth:    auth,
		store:   store,
		scanner: scanner,
		obs:     obs,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("POST /api/v1/auth/login", a.auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", a.auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", a.auth.HandleMe)

	mux.Handle("POST /api/v1/admin/scans", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminCreateScan)))
	mux.Handle("GET /api/v1/admin/scans", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminListScans)))
	mux.Handle("GET /api/v1/admin/scans/{id}", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminGetScan)))
	mux.Handle("GET /api/v1/admin/scans/{id}/events", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminScanEventsSSE)))
	mux.Handle("GET /api/v1/admin/metrics/overview", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminOverview)))
	mux.Handle("GET /api/v1/admin/audit", a.auth.RequireAdmin(http.HandlerFunc(a.handleAdminAudit)))

	mux.HandleFunc("POST /api/v1/user/quick-scan", a.handleUserQuickScan)
	mux.HandleFunc("GET /api/v1/user/quick-scan/{id}", a.handleUserGetQuickScan)
	mux.Handle("GET /api/v1/user/my-scans", a.auth.Require(http.HandlerFunc(a.handleUserMyScans)))

	wrapped := otelhttp.NewHandler(mux, "gqlcheck-api-http")
	return withCORS(wrapped)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": nowRFC3339(),
	})
}

func (a *API) handleAdminCreateScan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("gqlcheck-api").Start(r.Context(), "admin.create_scan")
	defer span.End()
	principal, _ := PrincipalFromContext(ctx)
	var req ScanRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	meta, err := a.scanner.CreateScan(req, principal, "admin.manual")
	if err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scan_id": meta.ScanID,
		"status":  meta.Status,
	})
}

func (a *API) handleAdminGetScan(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scan id")
		return
	}
	meta, ok := a.store.GetScan(id)
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (a *API) handleAdminListScans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scans": a.store.ListScans(100),
	})
}

func (a *API) handleAdminScanEventsSSE(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scan id")
		return
	}
	if _, ok := a.store.GetScan(id); !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	cursor := parseCursor(r)
	send := func(events []ScanEvent) {
		for _, event := range events {
			payload, marshalErr := json.Marshal(event)
			if marshalErr != nil {
				continue
			}
			fmt.Fprintf(w, "event: scan_event\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			cursor = event.Seq
		}
		flusher.Flush()
	}
	send(a.store.ListScanEvents(id, cursor))

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			events := a.store.ListScanEvents(id, cursor)
			if len(events) > 0 {
				send(events)
			} else {
				_, _ = fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

func (a *API) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.GetMetricsOverview())
}

func (a *API) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"audit": a.store.ListAudit(200),
	})
}

func (a *API) handleUserQuickScan(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("gqlcheck-api").Start(r.Context(), "user.quick_scan")
	defer span.End()
	var req ScanRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ipHash, uaHash := actorHashes(r)
	// optional: attach user identity if logged in
	principal, _ := a.auth.AuthenticateRequest(r)
	span.SetAttributes(
		attribute.String("actor.type", "user"),
	)
	meta, err := a.scanner.CreateQuickScan(req, ipHash, uaHash)
	if err != nil {
		span.RecordError(err)
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "rate limit") {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error())
		return
	}
	// link scan to logged-in user
	if principal.Subject != "" {
		_, _ = a.store.UpdateScan(meta.ScanID, func(m *ScanMeta) {
			m.CreatorSub = principal.Subject
		})
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scan_id": meta.ScanID,
		"status":  meta.Status,
	})
}

func (a *API) handleUserMyScans(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	scans := a.store.ListScansByCreator(principal.Subject, 50)
	out := make([]map[string]any, 0, len(scans))
	for _, m := range scans {
		entry := map[string]any{
			"scan_id":       m.ScanID,
			"status":        m.Status,
			"endpoint":      m.Request.URL,
			"created_at":    m.CreatedAt,
			"finding_count": m.FindingCount,
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

func (a *API) handleUserGetQuickScan(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scan id")
		return
	}
	meta, ok := a.store.GetScan(id)
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	view := map[string]any{
		"scan_id":     meta.ScanID,
		"status":      meta.Status,
		"endpoint":    meta.Request.URL,
		"created_at":  meta.CreatedAt,
		"started_at":  meta.StartedAt,
		"finished_at": meta.FinishedAt,
	}
	if meta.Report != nil {
		view["summary"] = summarizeReportForUser(*meta.Report)
	}
	writeJSON(w, http.StatusOK, view)
}

// summarizeReportForUser strips a persisted report down to what an anonymous
// quick-scan caller should see: pass/fail plus the finding messages, without
// creator or audit details.
func summarizeReportForUser(report ScanReport) map[string]any {
	findings := make([]map[string]any, 0, len(report.Findings))
	for _, f := range report.Findings {
		findings = append(findings, map[string]any{
			"kind":    f.Kind,
			"message": f.Message,
		})
	}
	return map[string]any{
		"passed":      report.Passed,
		"findings":    findings,
		"duration_ms": report.DurationMS,
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorHashes(r *http.Request) (string, string) {
	ip, _, _ := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if ip == "" {
		ip = strings.TrimSpace(r.RemoteAddr)
	}
	return hashString(ip), hashString(r.UserAgent())
}
