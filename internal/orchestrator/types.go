package orchestrator

import "github.com/danielpatrickdp/zooid-trials/internal/shaper"

// #region trial-plan

// TrialPlan is everything the external executor needs to run one trial.
type TrialPlan struct {
	TrialID     string             `json:"trial_id"`
	Family      string             `json:"family"`
	Constraints shaper.Constraints `json:"constraints"`
	Mode        shaper.Mode        `json:"mode"`
	PassRate    float64            `json:"pass_rate"`

	// FromRegret marks a replayed failure; RegretHint carries its
	// diagnostic excerpt into the trial parameters.
	FromRegret bool   `json:"from_regret"`
	RegretHint string `json:"regret_hint,omitempty"`
}

// #endregion trial-plan

// #region trial-outcome

// TrialOutcome reports a completed trial back into the loop.
type TrialOutcome struct {
	Plan    TrialPlan
	Passed  bool
	Metrics map[string]any
}

// #endregion trial-outcome

// #region options

// Options tunes the regret biasing of the planning loop.
type Options struct {
	ReplayPct     float64
	HarvestWindow int
}

// DefaultOptions returns the standard regret biasing.
func DefaultOptions() Options {
	return Options{ReplayPct: 0.25, HarvestWindow: 100}
}

// #endregion options
