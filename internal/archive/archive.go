package archive

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
	_ "modernc.org/sqlite"
)

// #endregion

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS trial_outcomes (
	id           TEXT PRIMARY KEY,
	family       TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	timestamp    REAL NOT NULL,
	metrics_json TEXT,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trial_outcomes_family
ON trial_outcomes(family, timestamp);

CREATE TABLE IF NOT EXISTS provenance_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	subject    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	detail     TEXT,
	created_at TEXT NOT NULL
);
`

// #endregion schema

// #region archive-struct

// Archive mirrors trial outcomes and lifecycle events into SQLite for
// audit and inspection. The NDJSON ledger stays the source of scheduling
// truth; the archive is a read-side index and never feeds decisions.
type Archive struct {
	db *sql.DB
}

// NewArchive opens the archive database and runs migrations.
func NewArchive(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// #endregion archive-struct

// #region record-trial

// RecordTrial mirrors one ledger record under its trial id.
func (a *Archive) RecordTrial(trialID string, rec ledger.TrialRecord) error {
	var metricsPtr interface{}
	if len(rec.Metrics) > 0 {
		data, err := json.Marshal(rec.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		metricsPtr = string(data)
	}

	passed := 0
	if rec.Passed {
		passed = 1
	}

	_, err := a.db.Exec(
		`INSERT INTO trial_outcomes (id, family, passed, timestamp, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		trialID, rec.Family, passed, rec.Timestamp, metricsPtr,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

// #endregion record-trial

// #region provenance

// ProvenanceEntry is one audited lifecycle or supervisory event
// (promotion, demotion, lock reap).
type ProvenanceEntry struct {
	Subject   string
	EventType string
	Detail    string
	CreatedAt time.Time
}

// LogEvent appends a provenance entry.
func (a *Archive) LogEvent(entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var detailPtr interface{}
	if entry.Detail != "" {
		detailPtr = entry.Detail
	}
	_, err := a.db.Exec(
		`INSERT INTO provenance_log (subject, event_type, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		entry.Subject, entry.EventType, detailPtr,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion provenance

// #region queries

// TrialRow is one archived trial outcome.
type TrialRow struct {
	ID        string
	Family    string
	Passed    bool
	Timestamp float64
}

// RecentTrials returns the most recent archived outcomes.
func (a *Archive) RecentTrials(limit int) ([]TrialRow, error) {
	rows, err := a.db.Query(
		`SELECT id, family, passed, timestamp FROM trial_outcomes
		 ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent trials: %w", err)
	}
	defer rows.Close()

	var out []TrialRow
	for rows.Next() {
		var r TrialRow
		var passed int
		if err := rows.Scan(&r.ID, &r.Family, &passed, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		r.Passed = passed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventRow is one archived provenance event.
type EventRow struct {
	Subject   string
	EventType string
	Detail    string
	CreatedAt string
}

// RecentEvents returns the most recent provenance entries.
func (a *Archive) RecentEvents(limit int) ([]EventRow, error) {
	rows, err := a.db.Query(
		`SELECT subject, event_type, COALESCE(detail, ''), created_at FROM provenance_log
		 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(&r.Subject, &r.EventType, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion queries
