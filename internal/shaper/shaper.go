package shaper

// #region imports
import (
	"log"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
)

// #endregion

// #region shaper-struct

// Shaper is a bang-bang feedback controller: it retunes per-family trial
// constraints to keep the rolling pass rate inside the target band.
// Deliberately coarse: each trial is expensive, and oscillation around
// the band is acceptable as long as the band is the attractor.
type Shaper struct {
	ledger *ledger.Ledger
	config ShaperConfig
}

// NewShaper creates a shaper reading pass rates from the given ledger.
func NewShaper(l *ledger.Ledger, config ShaperConfig) *Shaper {
	return &Shaper{ledger: l, config: config}
}

// #endregion shaper-struct

// #region shape

// Shape derives constraints for the family's next trial from its rolling
// pass rate. Cold-start families (fewer than ColdStartMinEvidence samples)
// always get the unmodified baseline. Shape never fails: a ledger read
// error degrades to baseline and is logged.
func (s *Shaper) Shape(family string, baseline Constraints) (Constraints, Mode, float64) {
	rate, n, err := s.ledger.RollingPassRate(family, s.config.Window)
	if err != nil {
		log.Printf("[SHAPER] pass rate unavailable for %s, using baseline: %v", family, err)
		return baseline, ModeColdStart, 0
	}

	if n < s.config.ColdStartMinEvidence {
		return baseline, ModeColdStart, rate
	}

	switch {
	case rate > s.config.TargetBand.Max:
		return s.applyFloors(harden(baseline, s.config.Hardener)), ModeHarden, rate
	case rate < s.config.TargetBand.Min:
		return s.applyFloors(soften(baseline, s.config.Softener)), ModeSoften, rate
	default:
		return baseline, ModeInBand, rate
	}
}

// #endregion shape

// #region adjustments

func harden(c Constraints, adj Adjustment) Constraints {
	c.DiffLimit += adj.DiffLimitDelta
	if adj.TimeoutScale > 0 {
		c.TimeoutS = int(float64(c.TimeoutS) * adj.TimeoutScale)
	}
	c.ContextLines += adj.ContextLinesDelta
	return c
}

func soften(c Constraints, adj Adjustment) Constraints {
	c.DiffLimit -= adj.DiffLimitDelta
	if adj.TimeoutScale > 0 {
		c.TimeoutS = int(float64(c.TimeoutS) / adj.TimeoutScale)
	}
	c.ContextLines -= adj.ContextLinesDelta
	return c
}

// applyFloors enforces the configured minimums on both branches so
// repeated softening cannot collapse below the floor.
func (s *Shaper) applyFloors(c Constraints) Constraints {
	if c.DiffLimit < s.config.Floors.MinDiffLimit {
		c.DiffLimit = s.config.Floors.MinDiffLimit
	}
	if c.TimeoutS < s.config.Floors.MinTimeoutS {
		c.TimeoutS = s.config.Floors.MinTimeoutS
	}
	if c.ContextLines < s.config.Floors.MinContextLines {
		c.ContextLines = s.config.Floors.MinContextLines
	}
	return c
}

// #endregion adjustments
