package ledger

// #region trial-record

// TrialRecord is one completed trial, immutable once appended.
// Timestamp is unix seconds; Metrics carries executor-reported values
// (trace excerpts, durations) that the ledger itself never interprets.
type TrialRecord struct {
	Family    string         `json:"family"`
	Passed    bool           `json:"passed"`
	Timestamp float64        `json:"timestamp"`
	Metrics   map[string]any `json:"metrics,omitempty"`
}

// #endregion trial-record

// #region family-stats

// FamilyStats is the derived per-family aggregate. It is recomputed from
// the ledger on every decision and never cached across processes.
type FamilyStats struct {
	Successes int
	Attempts  int
	LastSeen  float64
}

// Rate returns successes/attempts, 0 when the family has no attempts.
func (s FamilyStats) Rate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// #endregion family-stats
