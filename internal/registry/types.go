package registry

// #region lifecycle-state

// LifecycleState is the promotion state of a zooid worker.
type LifecycleState string

const (
	StateProbation LifecycleState = "PROBATION"
	StateGraduated LifecycleState = "GRADUATED"
	StateDemoted   LifecycleState = "DEMOTED"
)

// #endregion lifecycle-state

// #region zooid-record

// ZooidRecord tracks one worker's lifecycle state and accumulated fitness
// evidence. Records are never deleted; demoted workers remain for audit
// with their state frozen.
type ZooidRecord struct {
	Name           string         `json:"name"`
	LifecycleState LifecycleState `json:"lifecycle_state"`
	FitnessMean    float64        `json:"fitness_mean"`
	EvidenceCount  int            `json:"evidence_count"`
}

// #endregion zooid-record
