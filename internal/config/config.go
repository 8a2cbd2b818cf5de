package config

// #region imports
import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/zooid-trials/internal/promotion"
	"github.com/danielpatrickdp/zooid-trials/internal/scheduler"
	"github.com/danielpatrickdp/zooid-trials/internal/shaper"
)

// #endregion

// #region config-struct

// Paths locates every shared file the daemons touch.
type Paths struct {
	Ledger      string `yaml:"ledger"`
	RegretQueue string `yaml:"regret_queue"`
	Registry    string `yaml:"registry"`
	LockDir     string `yaml:"lock_dir"`
	ArchiveDB   string `yaml:"archive_db"`
}

// RegretConfig controls failure harvesting and replay biasing.
type RegretConfig struct {
	ReplayPct     float64 `yaml:"replay_pct"`
	HarvestWindow int     `yaml:"harvest_window"`
}

// LockConfig controls stale-lock supervision.
type LockConfig struct {
	MaxAgeS int `yaml:"max_age_s"`
}

// Config is the single structured document loaded once at process start.
type Config struct {
	TargetBand shaper.Band               `yaml:"target_band"`
	Hardener   shaper.Adjustment         `yaml:"hardener"`
	Softener   shaper.Adjustment         `yaml:"softener"`
	Scheduler  scheduler.SchedulerConfig `yaml:"scheduler"`
	Promotion  promotion.PromotionConfig `yaml:"promotion"`

	Floors               shaper.Floors `yaml:"floors"`
	ColdStartMinEvidence int           `yaml:"cold_start_min_evidence"`
	Window               int           `yaml:"window"`

	Baseline shaper.Constraints `yaml:"baseline"`
	Regret   RegretConfig       `yaml:"regret"`
	Lock     LockConfig         `yaml:"lock"`
	Paths    Paths              `yaml:"paths"`
}

// #endregion config-struct

// #region defaults

// Default returns a complete working configuration rooted at dataDir.
func Default(dataDir string) Config {
	sc := shaper.DefaultShaperConfig()
	return Config{
		TargetBand:           sc.TargetBand,
		Hardener:             sc.Hardener,
		Softener:             sc.Softener,
		Scheduler:            scheduler.DefaultSchedulerConfig(),
		Promotion:            promotion.DefaultPromotionConfig(),
		Floors:               sc.Floors,
		ColdStartMinEvidence: sc.ColdStartMinEvidence,
		Window:               sc.Window,
		Baseline:             shaper.Constraints{DiffLimit: 5, TimeoutS: 60, ContextLines: 40},
		Regret:               RegretConfig{ReplayPct: 0.25, HarvestWindow: 100},
		Lock:                 LockConfig{MaxAgeS: 3600},
		Paths: Paths{
			Ledger:      dataDir + "/trials.ndjson",
			RegretQueue: dataDir + "/regrets.ndjson",
			Registry:    dataDir + "/registry.json",
			LockDir:     dataDir + "/locks",
			ArchiveDB:   dataDir + "/archive.db",
		},
	}
}

// #endregion defaults

// #region load

// Load reads a YAML config document. Unknown fields are rejected so a
// typo'd key fails at startup instead of silently using a default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default(".")
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// #endregion load

// #region derived

// ShaperConfig assembles the feedback controller's config from the
// document's key groups.
func (c Config) ShaperConfig() shaper.ShaperConfig {
	return shaper.ShaperConfig{
		TargetBand:           c.TargetBand,
		Hardener:             c.Hardener,
		Softener:             c.Softener,
		Floors:               c.Floors,
		ColdStartMinEvidence: c.ColdStartMinEvidence,
		Window:               c.Window,
	}
}

// LockMaxAge returns the stale-lock threshold as a duration.
func (c Config) LockMaxAge() time.Duration {
	return time.Duration(c.Lock.MaxAgeS) * time.Second
}

// #endregion derived
