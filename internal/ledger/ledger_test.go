package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func tempLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), "trials.ndjson"))
}

func TestReadRecentMissingFileIsEmpty(t *testing.T) {
	l := tempLedger(t)

	records, err := l.ReadRecent(10)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty, got %d records", len(records))
	}
}

func TestAppendAndReadRecentOrder(t *testing.T) {
	l := tempLedger(t)

	for i, family := range []string{"a", "b", "c"} {
		rec := TrialRecord{Family: family, Passed: i%2 == 0, Timestamp: float64(100 + i)}
		if err := l.Append(rec); err != nil {
			t.Fatalf("append %s: %v", family, err)
		}
	}

	records, err := l.ReadRecent(2)
	if err != nil {
		t.Fatalf("read recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Family != "b" || records[1].Family != "c" {
		t.Fatalf("wrong tail order: %s, %s", records[0].Family, records[1].Family)
	}
}

func TestAppendRejectsEmptyFamily(t *testing.T) {
	l := tempLedger(t)
	if err := l.Append(TrialRecord{}); err == nil {
		t.Fatal("expected error for empty family")
	}
}

func TestAppendFillsTimestamp(t *testing.T) {
	l := tempLedger(t)
	if err := l.Append(TrialRecord{Family: "a", Passed: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	records, err := l.ReadRecent(1)
	if err != nil {
		t.Fatalf("read recent: %v", err)
	}
	if records[0].Timestamp == 0 {
		t.Fatal("timestamp should be filled on append")
	}
}

func TestAggregate(t *testing.T) {
	l := tempLedger(t)

	appends := []TrialRecord{
		{Family: "x", Passed: true, Timestamp: 10},
		{Family: "x", Passed: false, Timestamp: 20},
		{Family: "y", Passed: true, Timestamp: 15},
		{Family: "x", Passed: true, Timestamp: 30},
	}
	for _, rec := range appends {
		if err := l.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	stats, err := l.Aggregate("x")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.Attempts != 3 || stats.Successes != 2 {
		t.Fatalf("expected 2/3, got %d/%d", stats.Successes, stats.Attempts)
	}
	if stats.LastSeen != 30 {
		t.Fatalf("expected last seen 30, got %v", stats.LastSeen)
	}

	none, err := l.Aggregate("absent")
	if err != nil {
		t.Fatalf("aggregate absent: %v", err)
	}
	if none.Attempts != 0 || none.Rate() != 0 {
		t.Fatalf("absent family should aggregate to zero, got %+v", none)
	}
}

func TestRollingPassRateWindow(t *testing.T) {
	l := tempLedger(t)

	// Two old failures followed by two fresh passes; a window of 2 only
	// sees the passes.
	records := []TrialRecord{
		{Family: "x", Passed: false, Timestamp: 1},
		{Family: "x", Passed: false, Timestamp: 2},
		{Family: "x", Passed: true, Timestamp: 3},
		{Family: "x", Passed: true, Timestamp: 4},
	}
	for _, rec := range records {
		if err := l.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rate, n, err := l.RollingPassRate("x", 2)
	if err != nil {
		t.Fatalf("rolling pass rate: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 samples in window, got %d", n)
	}
	if rate != 1.0 {
		t.Fatalf("expected rate 1.0, got %v", rate)
	}

	rate, n, err = l.RollingPassRate("x", 4)
	if err != nil {
		t.Fatalf("rolling pass rate: %v", err)
	}
	if n != 4 || rate != 0.5 {
		t.Fatalf("expected 0.5 over 4 samples, got %v over %d", rate, n)
	}
}

func TestMalformedLinesSkippedAndCounted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trials.ndjson")
	content := `{"family":"x","passed":true,"timestamp":1}
not json at all
{"family":"y","passed":false,"timestamp":2}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := NewLedger(path)
	records, err := l.ReadRecent(10)
	if err != nil {
		t.Fatalf("read recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 valid records, got %d", len(records))
	}
	if l.Skipped() != 1 {
		t.Fatalf("expected 1 skipped line, got %d", l.Skipped())
	}
}
