package archive

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRecordAndQueryTrials(t *testing.T) {
	a := newArchive(t)

	id1 := uuid.New().String()
	id2 := uuid.New().String()
	trials := []struct {
		id  string
		rec ledger.TrialRecord
	}{
		{id1, ledger.TrialRecord{Family: "x", Passed: true, Timestamp: 10, Metrics: map[string]any{"dur_s": 1.5}}},
		{id2, ledger.TrialRecord{Family: "y", Passed: false, Timestamp: 20}},
	}
	for _, tr := range trials {
		if err := a.RecordTrial(tr.id, tr.rec); err != nil {
			t.Fatalf("record trial: %v", err)
		}
	}

	rows, err := a.RecentTrials(10)
	if err != nil {
		t.Fatalf("recent trials: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Most recent first.
	if rows[0].ID != id2 || rows[0].Passed {
		t.Fatalf("wrong first row: %+v", rows[0])
	}
	if rows[1].Family != "x" || !rows[1].Passed {
		t.Fatalf("wrong second row: %+v", rows[1])
	}
}

func TestDuplicateTrialIDRejected(t *testing.T) {
	a := newArchive(t)

	id := uuid.New().String()
	rec := ledger.TrialRecord{Family: "x", Passed: true, Timestamp: 1}
	if err := a.RecordTrial(id, rec); err != nil {
		t.Fatalf("record trial: %v", err)
	}
	if err := a.RecordTrial(id, rec); err == nil {
		t.Fatal("duplicate trial id should violate the primary key")
	}
}

func TestProvenanceLog(t *testing.T) {
	a := newArchive(t)

	entries := []ProvenanceEntry{
		{Subject: "zooid-a", EventType: "promoted", Detail: "fitness_mean=0.95"},
		{Subject: "lifecycle-registry", EventType: "lock_reaped"},
	}
	for _, e := range entries {
		if err := a.LogEvent(e); err != nil {
			t.Fatalf("log event: %v", err)
		}
	}

	rows, err := a.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rows))
	}
	if rows[0].EventType != "lock_reaped" || rows[1].Subject != "zooid-a" {
		t.Fatalf("wrong event order: %+v", rows)
	}
	if rows[1].Detail != "fitness_mean=0.95" {
		t.Fatalf("detail lost: %+v", rows[1])
	}
	if rows[0].CreatedAt == "" {
		t.Fatal("created_at should be filled when zero")
	}
}
