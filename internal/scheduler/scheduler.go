package scheduler

// #region imports
import (
	"errors"
	"log"
	"math"
	"math/rand"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
)

// #endregion

// #region errors

// ErrNoFamilies is a fatal precondition violation: the scheduler cannot
// choose from an empty candidate list.
var ErrNoFamilies = errors.New("scheduler: empty family list")

// #endregion errors

// #region config

// SchedulerConfig holds the branch probabilities of the bandit.
type SchedulerConfig struct {
	ExplorePct float64 `yaml:"explore_pct"`
	ReviewPct  float64 `yaml:"review_pct"`
}

// DefaultSchedulerConfig returns the standard explore/review split.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{ExplorePct: 0.1, ReviewPct: 0.2}
}

// #endregion config

// #region scheduler-struct

// Scheduler picks the next trial family with a three-branch bandit:
// explore (uniform), review (coverage/freshness), exploit (UCB1).
// Statistics are read fresh from the ledger on every pick.
type Scheduler struct {
	ledger *ledger.Ledger
	config SchedulerConfig
	rng    *rand.Rand
}

// NewScheduler creates a scheduler. rng may be nil; a nil rng falls back
// to the global source. Tests inject a seeded source.
func NewScheduler(l *ledger.Ledger, config SchedulerConfig, rng *rand.Rand) *Scheduler {
	return &Scheduler{ledger: l, config: config, rng: rng}
}

// #endregion scheduler-struct

// #region pick

// Pick returns the next family to exercise. It never fails for any
// statistics state; insufficient or unreadable statistics degrade to
// uniform random choice. The only error is an empty candidate list.
func (s *Scheduler) Pick(families []string) (string, error) {
	if len(families) == 0 {
		return "", ErrNoFamilies
	}

	// Explore: guaranteed non-zero visitation for every family.
	if s.roll() < s.config.ExplorePct {
		return families[s.intn(len(families))], nil
	}

	stats, err := s.statsFor(families)
	if err != nil {
		log.Printf("[SCHED] statistics unavailable, degrading to uniform: %v", err)
		return families[s.intn(len(families))], nil
	}

	// Review: coverage first, then staleness correction.
	if s.roll() < s.config.ReviewPct {
		return s.review(families, stats), nil
	}

	return s.exploit(families, stats), nil
}

// #endregion pick

// #region review

// review picks uniformly among unseen families when any exist, otherwise
// the family with the oldest last-seen timestamp.
func (s *Scheduler) review(families []string, stats map[string]ledger.FamilyStats) string {
	var unseen []string
	for _, f := range families {
		if stats[f].Attempts == 0 {
			unseen = append(unseen, f)
		}
	}
	if len(unseen) > 0 {
		return unseen[s.intn(len(unseen))]
	}

	oldest := families[0]
	for _, f := range families[1:] {
		if stats[f].LastSeen < stats[oldest].LastSeen {
			oldest = f
		}
	}
	return oldest
}

// #endregion review

// #region exploit

// exploit scores each family with UCB1 and returns the max. Ties break by
// list order (first max wins) so repeated runs are reproducible. With no
// statistics at all it falls back to uniform random choice.
func (s *Scheduler) exploit(families []string, stats map[string]ledger.FamilyStats) string {
	total := 0
	for _, f := range families {
		total += stats[f].Attempts
	}
	if total == 0 {
		return families[s.intn(len(families))]
	}

	// +1 avoids ln(0) when a single family holds all attempts.
	logN := math.Log(float64(total + 1))

	best := families[0]
	bestScore := math.Inf(-1)
	for _, f := range families {
		st := stats[f]
		var score float64
		if st.Attempts == 0 {
			// Untried families get an unbounded bonus so exploit
			// still covers them eventually.
			score = math.Inf(1)
		} else {
			score = st.Rate() + math.Sqrt(2*logN/float64(st.Attempts))
		}
		if score > bestScore {
			bestScore = score
			best = f
		}
	}
	return best
}

// #endregion exploit

// #region helpers

// statsFor aggregates every candidate family in a single ledger scan.
func (s *Scheduler) statsFor(families []string) (map[string]ledger.FamilyStats, error) {
	records, err := s.ledger.ReadRecent(-1)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(families))
	for _, f := range families {
		wanted[f] = true
	}

	stats := make(map[string]ledger.FamilyStats, len(families))
	for _, rec := range records {
		if !wanted[rec.Family] {
			continue
		}
		st := stats[rec.Family]
		st.Attempts++
		if rec.Passed {
			st.Successes++
		}
		if rec.Timestamp > st.LastSeen {
			st.LastSeen = rec.Timestamp
		}
		stats[rec.Family] = st
	}
	return stats, nil
}

func (s *Scheduler) roll() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

func (s *Scheduler) intn(n int) int {
	if s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}

// #endregion helpers
