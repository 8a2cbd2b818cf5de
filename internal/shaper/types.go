package shaper

// #region constraints

// Constraints are the shaped trial parameters handed to the executor.
// They are derived per invocation and never persisted.
type Constraints struct {
	DiffLimit    int `json:"diff_limit" yaml:"diff_limit"`
	TimeoutS     int `json:"timeout_s" yaml:"timeout_s"`
	ContextLines int `json:"context_lines" yaml:"context_lines"`
}

// #endregion constraints

// #region mode

// Mode tags how the controller arrived at the shaped constraints.
type Mode string

const (
	ModeColdStart Mode = "cold_start"
	ModeHarden    Mode = "harden"
	ModeSoften    Mode = "soften"
	ModeInBand    Mode = "in_band"
)

// #endregion mode

// #region config

// Band is the [Min,Max] pass-rate interval the controller keeps each
// family inside.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Adjustment holds the deltas applied when hardening or softening.
// TimeoutScale is a multiplier >= 1; softening divides by it.
type Adjustment struct {
	DiffLimitDelta    int     `yaml:"diff_limit_delta"`
	TimeoutScale      float64 `yaml:"timeout_scale"`
	ContextLinesDelta int     `yaml:"context_lines_delta"`
}

// Floors keep the controller from degenerating into a zero-difficulty or
// zero-timeout regime.
type Floors struct {
	MinDiffLimit    int `yaml:"min_diff_limit"`
	MinTimeoutS     int `yaml:"min_timeout_s"`
	MinContextLines int `yaml:"min_context_lines"`
}

// ShaperConfig bundles everything the feedback controller needs.
type ShaperConfig struct {
	TargetBand           Band       `yaml:"target_band"`
	Hardener             Adjustment `yaml:"hardener"`
	Softener             Adjustment `yaml:"softener"`
	Floors               Floors     `yaml:"floors"`
	ColdStartMinEvidence int        `yaml:"cold_start_min_evidence"`
	Window               int        `yaml:"window"`
}

// DefaultShaperConfig returns sensible defaults for the controller.
func DefaultShaperConfig() ShaperConfig {
	return ShaperConfig{
		TargetBand:           Band{Min: 0.3, Max: 0.7},
		Hardener:             Adjustment{DiffLimitDelta: 2, TimeoutScale: 1.25, ContextLinesDelta: 10},
		Softener:             Adjustment{DiffLimitDelta: 2, TimeoutScale: 1.25, ContextLinesDelta: 10},
		Floors:               Floors{MinDiffLimit: 1, MinTimeoutS: 5, MinContextLines: 0},
		ColdStartMinEvidence: 5,
		Window:               100,
	}
}

// #endregion config
