package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CreateScan(meta ScanMeta) error {
	req, _ := json.Marshal(meta.Request)
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO scans (scan_id,status,creator_type,creator_sub,source,request,created_at,finding_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		meta.ScanID, meta.Status, meta.CreatorType, meta.CreatorSub,
		meta.Source, req, meta.CreatedAt, meta.FindingCount)
	return err
}

func (s *PgStore) UpdateScan(scanID string, mutate func(*ScanMeta)) (ScanMeta, error) {
	tx, err := s.pool.Begin(context.Background())
	if err != nil {
		return ScanMeta{}, err
	}
	defer tx.Rollback(context.Background())

	row := tx.QueryRow(context.Background(),
		`SELECT scan_id,status,creator_type,creator_sub,source,request,
		        started_at,finished_at,created_at,error,report,finding_count
		 FROM scans WHERE scan_id=$1 FOR UPDATE`, scanID)
	meta, err := scanScanMeta(row)
	if err != nil {
		return ScanMeta{}, fmt.Errorf("scan not found: %s", scanID)
	}
	if mutate != nil {
		mutate(&meta)
	}
	req, _ := json.Marshal(meta.Request)
	var reportJSON []byte
	if meta.Report != nil {
		reportJSON, _ = json.Marshal(meta.Report)
	}
	_, err = tx.Exec(context.Background(),
		`UPDATE scans SET status=$1,started_at=$2,finished_at=$3,error=$4,report=$5,
		 finding_count=$6,request=$7 WHERE scan_id=$8`,
		meta.Status, nullStr(meta.StartedAt), nullStr(meta.FinishedAt), meta.Error,
		reportJSON, meta.FindingCount, req, scanID)
	if err != nil {
		return ScanMeta{}, err
	}
	return meta, tx.Commit(context.Background())
}

func (s *PgStore) GetScan(scanID string) (ScanMeta, bool) {
	row := s.pool.QueryRow(context.Background(),
		`SELECT scan_id,status,creator_type,creator_sub,source,request,
		        started_at,finished_at,created_at,error,report,finding_count
		 FROM scans WHERE scan_id=$1`, scanID)
	meta, err := scanScanMeta(row)
	if err != nil {
		return ScanMeta{}, false
	}
	return meta, true
}

func (s *PgStore) ListScans(limit int) []ScanMeta {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(context.Background(),
		`SELECT scan_id,status,creator_type,creator_sub,source,request,
		        started_at,finished_at,created_at,error,report,finding_count
		 FROM scans ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return []ScanMeta{}
	}
	defer rows.Close()
	var out []ScanMeta
	for rows.Next() {
		meta, err := scanScanMeta(rows)
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	if out == nil {
		return []ScanMeta{}
	}
	return out
}

func (s *PgStore) ListScansByCreator(creatorSub string, limit int) []ScanMeta {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(context.Background(),
		`SELECT scan_id,status,creator_type,creator_sub,source,request,
		        started_at,finished_at,created_at,error,report,finding_count
		 FROM scans WHERE creator_sub=$1 ORDER BY created_at DESC LIMIT $2`, creatorSub, limit)
	if err != nil {
		return []ScanMeta{}
	}
	defer rows.Close()
	var out []ScanMeta
	for rows.Next() {
		meta, err := scanScanMeta(rows)
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	if out == nil {
		return []ScanMeta{}
	}
	return out
}

func (s *PgStore) AppendScanEvent(scanID string, stage, message string, data map[string]any) (ScanEvent, error) {
	var dataJSON []byte
	if data != nil {
		dataJSON, _ = json.Marshal(data)
	}
	var seq int64
	var ts time.Time
	err := s.pool.QueryRow(context.Background(),
		`INSERT INTO scan_events (scan_id, seq, stage, message, data)
		 VALUES ($1, COALESCE((SELECT MAX(seq) FROM scan_events WHERE scan_id=$1),0)+1, $2, $3, $4)
		 RETURNING seq, timestamp`, scanID, stage, message, dataJSON).Scan(&seq, &ts)
	if err != nil {
		return ScanEvent{}, err
	}
	return ScanEvent{
		Seq:       seq,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Stage:     stage,
		Message:   message,
		Data:      data,
	}, nil
}

func (s *PgStore) ListScanEvents(scanID string, sinceSeq int64) []ScanEvent {
	rows, err := s.pool.Query(context.Background(),
		`SELECT seq, timestamp, stage, message, data
		 FROM scan_events WHERE scan_id=$1 AND seq>$2 ORDER BY seq`, scanID, sinceSeq)
	if err != nil {
		return []ScanEvent{}
	}
	defer rows.Close()
	var out []ScanEvent
	for rows.Next() {
		var e ScanEvent
		var ts time.Time
		var dataJSON []byte
		if err := rows.Scan(&e.Seq, &ts, &e.Stage, &e.Message, &dataJSON); err != nil {
			continue
		}
		e.Timestamp = ts.UTC().Format(time.RFC3339)
		if len(dataJSON) > 0 {
			_ = json.Unmarshal(dataJSON, &e.Data)
		}
		out = append(out, e)
	}
	if out == nil {
		return []ScanEvent{}
	}
	return out
}

func (s *PgStore) AppendAudit(event AuditEvent) error {
	if strings.TrimSpace(event.Timestamp) == "" {
		event.Timestamp = nowRFC3339()
	}
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO audit_events (timestamp,scan_id,actor_type,actor_sub,action,result,ip_hash,ua_hash,detail)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		event.Timestamp, nullStr(event.ScanID), event.ActorType, nullStr(event.ActorSub),
		event.Action, event.Result, nullStr(event.IPHash), nullStr(event.UAHash), nullStr(event.Detail))
	return err
}

func (s *PgStore) ListAudit(limit int) []AuditEvent {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(context.Background(),
		`SELECT timestamp,scan_id,actor_type,actor_sub,action,result,ip_hash,ua_hash,detail
		 FROM audit_events ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return []AuditEvent{}
	}
	defer rows.Close()
	var out []AuditEvent
	for rows.Next() {
		var a AuditEvent
		var ts time.Time
		var scanID, actorSub, ipHash, uaHash, detail *string
		if err := rows.Scan(&ts, &scanID, &a.ActorType, &actorSub, &a.Action, &a.Result, &ipHash, &uaHash, &detail); err != nil {
			continue
		}
		a.Timestamp = ts.UTC().Format(time.RFC3339)
		a.ScanID = deref(scanID)
		a.ActorSub = deref(actorSub)
		a.IPHash = deref(ipHash)
		a.UAHash = deref(uaHash)
		a.Detail = deref(detail)
		out = append(out, a)
	}
	if out == nil {
		return []AuditEvent{}
	}
	return out
}

func (s *PgStore) GetMetricsOverview() MetricsOverview {
	overview := MetricsOverview{
		GeneratedAt:    nowRFC3339(),
		FindingsByKind: map[string]int{},
	}
	_ = s.pool.QueryRow(context.Background(),
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('running','queued')),
			COUNT(*) FILTER (WHERE status='pass'),
			COUNT(*) FILTER (WHERE status='fail'),
			COUNT(*) FILTER (WHERE status='error'),
			COALESCE(SUM(finding_count),0)
		 FROM scans`).Scan(
		&overview.TotalScans, &overview.RunningScans, &overview.PassScans,
		&overview.FailScans, &overview.ErrorScans, &overview.TotalFindings)

	rows, err := s.pool.Query(context.Background(),
		`SELECT f->>'kind', COUNT(*)
		 FROM scans, jsonb_array_elements(report->'findings') f
		 WHERE report IS NOT NULL
		 GROUP BY 1`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var kind string
			var count int
			if rows.Scan(&kind, &count) == nil {
				overview.FindingsByKind[kind] = count
			}
		}
	}

	var durationTotal int64
	_ = s.pool.QueryRow(context.Background(),
		`SELECT COALESCE(SUM((report->>'duration_ms')::bigint),0)
		 FROM scans WHERE report IS NOT NULL`).Scan(&durationTotal)
	if overview.TotalScans > 0 {
		overview.AverageDuration = durationTotal / int64(overview.TotalScans)
	}
	return overview
}

type pgRow interface {
	Scan(dest ...any) error
}

func scanScanMeta(row pgRow) (ScanMeta, error) {
	var meta ScanMeta
	var reqJSON, reportJSON []byte
	var startedAt, finishedAt *time.Time
	var createdAt time.Time
	var creatorSub, errMsg *string
	err := row.Scan(&meta.ScanID, &meta.Status, &meta.CreatorType, &creatorSub,
		&meta.Source, &reqJSON, &startedAt, &finishedAt, &createdAt, &errMsg,
		&reportJSON, &meta.FindingCount)
	if err != nil {
		return ScanMeta{}, err
	}
	meta.CreatorSub = deref(creatorSub)
	meta.Error = deref(errMsg)
	meta.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if startedAt != nil {
		meta.StartedAt = startedAt.UTC().Format(time.RFC3339)
	}
	if finishedAt != nil {
		meta.FinishedAt = finishedAt.UTC().Format(time.RFC3339)
	}
	if len(reqJSON) > 0 {
		_ = json.Unmarshal(reqJSON, &meta.Request)
	}
	if len(reportJSON) > 0 {
		var report ScanReport
		if json.Unmarshal(reportJSON, &report) == nil {
			meta.Report = &report
		}
	}
	return meta, nil
}

func nullStr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
