package ledger

// #region imports
import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// #endregion

// #region ledger-struct

// Ledger is the append-only trial log: newline-delimited JSON, one record
// per line. It is the sole source of historical truth; everything else
// reads derived aggregates.
type Ledger struct {
	path    string
	skipped atomic.Int64 // malformed lines encountered while reading
}

// NewLedger creates a ledger handle for the given file path. The file is
// created lazily on first append; a missing file reads as empty.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Skipped reports how many malformed lines this handle has skipped.
func (l *Ledger) Skipped() int64 {
	return l.skipped.Load()
}

// #endregion ledger-struct

// #region append

// Append writes a single record as one JSON line. The file is opened in
// append mode so concurrent appenders from separate processes interleave
// at line granularity (records stay below the filesystem's atomic-write
// size). A zero Timestamp is filled with the current time.
func (l *Ledger) Append(rec TrialRecord) error {
	if rec.Family == "" {
		return fmt.Errorf("append: empty family")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = float64(time.Now().UnixNano()) / float64(time.Second)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// #endregion append

// #region read-recent

// ReadRecent returns the last n records in insertion order. A missing
// ledger file is a cold start, not an error: it returns an empty slice.
// Malformed lines are skipped, counted, and logged.
func (l *Ledger) ReadRecent(n int) ([]TrialRecord, error) {
	records, err := l.readAll()
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// readAll scans the whole file. O(total records); the dataset is
// rolling-window bounded upstream.
func (l *Ledger) readAll() ([]TrialRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var records []TrialRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec TrialRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			l.skipped.Add(1)
			log.Printf("[LEDGER] skipping malformed line: %v", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return records, nil
}

// #endregion read-recent

// #region aggregate

// Aggregate computes (successes, attempts, lastSeen) for one family by
// scanning all records. Insertion order is chronological order.
func (l *Ledger) Aggregate(family string) (FamilyStats, error) {
	records, err := l.readAll()
	if err != nil {
		return FamilyStats{}, err
	}
	var stats FamilyStats
	for _, rec := range records {
		if rec.Family != family {
			continue
		}
		stats.Attempts++
		if rec.Passed {
			stats.Successes++
		}
		if rec.Timestamp > stats.LastSeen {
			stats.LastSeen = rec.Timestamp
		}
	}
	return stats, nil
}

// #endregion aggregate

// #region rolling-pass-rate

// RollingPassRate computes successes/attempts for a family over the most
// recent window records. Returns (rate, sampleCount); a family absent from
// the window has rate 0 and count 0.
func (l *Ledger) RollingPassRate(family string, window int) (float64, int, error) {
	records, err := l.ReadRecent(window)
	if err != nil {
		return 0, 0, err
	}
	var successes, attempts int
	for _, rec := range records {
		if rec.Family != family {
			continue
		}
		attempts++
		if rec.Passed {
			successes++
		}
	}
	if attempts == 0 {
		return 0, 0, nil
	}
	return float64(successes) / float64(attempts), attempts, nil
}

// #endregion rolling-pass-rate
