package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `
target_band:
  min: 0.35
  max: 0.65
hardener:
  diff_limit_delta: 3
  timeout_scale: 1.5
  context_lines_delta: 20
softener:
  diff_limit_delta: 1
  timeout_scale: 1.1
  context_lines_delta: 5
scheduler:
  review_pct: 0.15
  explore_pct: 0.05
promotion:
  max_fitness_threshold: 0.92
  min_fitness_threshold: 0.35
  min_evidence: 7
paths:
  ledger: /var/lib/zooid/trials.ndjson
  lock_dir: /var/lib/zooid/locks
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeDoc(t, sampleDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.TargetBand.Min != 0.35 || cfg.TargetBand.Max != 0.65 {
		t.Fatalf("target band not loaded: %+v", cfg.TargetBand)
	}
	if cfg.Hardener.DiffLimitDelta != 3 || cfg.Hardener.TimeoutScale != 1.5 {
		t.Fatalf("hardener not loaded: %+v", cfg.Hardener)
	}
	if cfg.Scheduler.ExplorePct != 0.05 || cfg.Scheduler.ReviewPct != 0.15 {
		t.Fatalf("scheduler not loaded: %+v", cfg.Scheduler)
	}
	if cfg.Promotion.MinEvidence != 7 {
		t.Fatalf("promotion not loaded: %+v", cfg.Promotion)
	}
	if cfg.Paths.Ledger != "/var/lib/zooid/trials.ndjson" {
		t.Fatalf("paths not loaded: %+v", cfg.Paths)
	}

	// Keys absent from the document keep their defaults.
	def := Default(".")
	if cfg.ColdStartMinEvidence != def.ColdStartMinEvidence {
		t.Fatalf("default lost: %d", cfg.ColdStartMinEvidence)
	}
	if cfg.Paths.Registry != def.Paths.Registry {
		t.Fatalf("default path lost: %s", cfg.Paths.Registry)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Load(writeDoc(t, "target_bandd:\n  min: 0.1\n")); err == nil {
		t.Fatal("typo'd key must fail at load time")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file should error")
	}
}

func TestShaperConfigAssembly(t *testing.T) {
	cfg, err := Load(writeDoc(t, sampleDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	sc := cfg.ShaperConfig()
	if sc.TargetBand != cfg.TargetBand {
		t.Fatalf("band mismatch: %+v", sc.TargetBand)
	}
	if sc.Softener != cfg.Softener {
		t.Fatalf("softener mismatch: %+v", sc.Softener)
	}
}

func TestLockMaxAge(t *testing.T) {
	cfg := Default(".")
	if cfg.LockMaxAge().Seconds() != float64(cfg.Lock.MaxAgeS) {
		t.Fatalf("max age conversion wrong: %v", cfg.LockMaxAge())
	}
}
