package server

import "testing"

func TestMemoryStoreScanLifecycle(t *testing.T) {
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore error: %v", err)
	}
	meta := ScanMeta{
		ScanID:      "scan_test_1",
		Status:      "queued",
		Source:      "test",
		CreatorType: "admin",
		Request:     ScanRequest{URL: "https://api.example.com/graphql"},
		CreatedAt:   nowRFC3339(),
	}
	if err := store.CreateScan(meta); err != nil {
		t.Fatalf("CreateScan error: %v", err)
	}
	event, err := store.AppendScanEvent(meta.ScanID, "queue", "queued", nil)
	if err != nil {
		t.Fatalf("AppendScanEvent error: %v", err)
	}
	if event.Seq != 1 {
		t.Fatalf("expected first seq=1, got %d", event.Seq)
	}
	updated, err := store.UpdateScan(meta.ScanID, func(item *ScanMeta) {
		item.Status = "running"
	})
	if err != nil {
		t.Fatalf("UpdateScan error: %v", err)
	}
	if updated.Status != "running" {
		t.Fatalf("expected status running, got %s", updated.Status)
	}
}

func TestMemoryStoreMetricsOverview(t *testing.T) {
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore error: %v", err)
	}
	report := ScanReport{
		GeneratedAt: nowRFC3339(),
		Endpoint:    "https://api.example.com/graphql",
		Passed:      false,
		Findings: []FindingRecord{
			{Kind: "auth_not_enforced", Message: "Able to make queries with no authentication header"},
			{Kind: "introspection_enabled", Message: "Introspection is enabled for the GraphQL server but not allowed"},
		},
		DurationMS: 40,
	}
	for i, status := range []string{"pass", "fail", "running"} {
		meta := ScanMeta{
			ScanID:      "scan_metrics_" + string(rune('a'+i)),
			Status:      status,
			Source:      "test",
			CreatorType: "admin",
			CreatedAt:   nowRFC3339(),
		}
		if status == "fail" {
			meta.Report = &report
			meta.FindingCount = len(report.Findings)
		}
		if err := store.CreateScan(meta); err != nil {
			t.Fatalf("CreateScan error: %v", err)
		}
	}
	overview := store.GetMetricsOverview()
	if overview.TotalScans != 3 {
		t.Fatalf("expected 3 scans, got %d", overview.TotalScans)
	}
	if overview.PassScans != 1 || overview.FailScans != 1 || overview.RunningScans != 1 {
		t.Fatalf("unexpected status counts: %+v", overview)
	}
	if overview.TotalFindings != 2 {
		t.Fatalf("expected 2 findings, got %d", overview.TotalFindings)
	}
	if overview.FindingsByKind["auth_not_enforced"] != 1 {
		t.Fatalf("expected auth_not_enforced count 1, got %d", overview.FindingsByKind["auth_not_enforced"])
	}
}

func TestMemoryStoreEventsSinceSeq(t *testing.T) {
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore error: %v", err)
	}
	meta := ScanMeta{
		ScanID:      "scan_events",
		Status:      "queued",
		Source:      "test",
		CreatorType: "admin",
		CreatedAt:   nowRFC3339(),
	}
	if err := store.CreateScan(meta); err != nil {
		t.Fatalf("CreateScan error: %v", err)
	}
	for _, stage := range []string{"queue", "start", "completed"} {
		if _, err := store.AppendScanEvent(meta.ScanID, stage, stage, nil); err != nil {
			t.Fatalf("AppendScanEvent(%s) error: %v", stage, err)
		}
	}
	events := store.ListScanEvents(meta.ScanID, 1)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after seq 1, got %d", len(events))
	}
	if events[0].Stage != "start" || events[1].Stage != "completed" {
		t.Fatalf("unexpected event order: %v %v", events[0].Stage, events[1].Stage)
	}
}
