package scheduler

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return ledger.NewLedger(filepath.Join(t.TempDir(), "trials.ndjson"))
}

func appendTrials(t *testing.T, l *ledger.Ledger, family string, passes, fails int, startTS float64) {
	t.Helper()
	ts := startTS
	for i := 0; i < passes; i++ {
		if err := l.Append(ledger.TrialRecord{Family: family, Passed: true, Timestamp: ts}); err != nil {
			t.Fatalf("append: %v", err)
		}
		ts++
	}
	for i := 0; i < fails; i++ {
		if err := l.Append(ledger.TrialRecord{Family: family, Passed: false, Timestamp: ts}); err != nil {
			t.Fatalf("append: %v", err)
		}
		ts++
	}
}

func TestPickEmptyFamilyListIsFatal(t *testing.T) {
	s := NewScheduler(newLedger(t), DefaultSchedulerConfig(), rand.New(rand.NewSource(1)))
	if _, err := s.Pick(nil); err != ErrNoFamilies {
		t.Fatalf("expected ErrNoFamilies, got %v", err)
	}
}

func TestExploreIsUniform(t *testing.T) {
	config := SchedulerConfig{ExplorePct: 1.0, ReviewPct: 0}
	s := NewScheduler(newLedger(t), config, rand.New(rand.NewSource(42)))

	families := []string{"a", "b", "c", "d"}
	counts := make(map[string]int)
	const samples = 4000
	for i := 0; i < samples; i++ {
		f, err := s.Pick(families)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[f]++
	}

	// Chi-square test against uniform, 3 degrees of freedom.
	// Critical value at p=0.001 is 16.27.
	expected := float64(samples) / float64(len(families))
	var chi2 float64
	for _, f := range families {
		d := float64(counts[f]) - expected
		chi2 += d * d / expected
	}
	if chi2 > 16.27 {
		t.Fatalf("explore distribution not uniform: chi2=%.2f counts=%v", chi2, counts)
	}
}

func TestExploitPrefersHigherSuccessRate(t *testing.T) {
	l := newLedger(t)
	appendTrials(t, l, "a", 8, 2, 1)  // 0.8 over 10 attempts
	appendTrials(t, l, "b", 2, 8, 20) // 0.2 over 10 attempts

	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 0}
	s := NewScheduler(l, config, rand.New(rand.NewSource(7)))

	wins := map[string]int{}
	for i := 0; i < 50; i++ {
		f, err := s.Pick([]string{"a", "b"})
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		wins[f]++
	}
	if wins["a"] <= wins["b"] {
		t.Fatalf("expected a to dominate, got %v", wins)
	}
}

func TestExploitTieBreakIsFirstMax(t *testing.T) {
	l := newLedger(t)
	// Identical statistics: identical UCB scores, first family must win.
	appendTrials(t, l, "a", 3, 3, 1)
	appendTrials(t, l, "b", 3, 3, 10)

	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 0}
	s := NewScheduler(l, config, rand.New(rand.NewSource(1)))

	for i := 0; i < 10; i++ {
		f, err := s.Pick([]string{"a", "b"})
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if f != "a" {
			t.Fatalf("tie must break to first family, got %s", f)
		}
	}
}

func TestReviewPrefersUnseenFamilies(t *testing.T) {
	l := newLedger(t)
	appendTrials(t, l, "seen", 5, 0, 1)

	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 1.0}
	s := NewScheduler(l, config, rand.New(rand.NewSource(3)))

	for i := 0; i < 10; i++ {
		f, err := s.Pick([]string{"seen", "unseen"})
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if f != "unseen" {
			t.Fatalf("review must prioritize unseen families, got %s", f)
		}
	}
}

func TestReviewPicksOldestWhenAllSeen(t *testing.T) {
	l := newLedger(t)
	appendTrials(t, l, "stale", 1, 0, 1)   // last seen 1
	appendTrials(t, l, "fresh", 1, 0, 100) // last seen 100

	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 1.0}
	s := NewScheduler(l, config, rand.New(rand.NewSource(3)))

	f, err := s.Pick([]string{"fresh", "stale"})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if f != "stale" {
		t.Fatalf("review must pick oldest last-seen, got %s", f)
	}
}

func TestExploitCoversUntriedFamilyFirst(t *testing.T) {
	l := newLedger(t)
	appendTrials(t, l, "tried", 10, 0, 1)

	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 0}
	s := NewScheduler(l, config, rand.New(rand.NewSource(5)))

	f, err := s.Pick([]string{"tried", "untried"})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if f != "untried" {
		t.Fatalf("untried family should win the exploit bonus, got %s", f)
	}
}

func TestExploitFallsBackToUniformWithNoStats(t *testing.T) {
	config := SchedulerConfig{ExplorePct: 0, ReviewPct: 0}
	s := NewScheduler(newLedger(t), config, rand.New(rand.NewSource(9)))

	families := []string{"a", "b"}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		f, err := s.Pick(families)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		seen[f] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("uniform fallback should visit both families, got %v", seen)
	}
}
