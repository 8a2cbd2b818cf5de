package main

// #region imports
import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/danielpatrickdp/zooid-trials/internal/archive"
	"github.com/danielpatrickdp/zooid-trials/internal/config"
	"github.com/danielpatrickdp/zooid-trials/internal/lockfile"
)

// #endregion

func init() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
		}),
	))
}

// #region main

// reaper is the supervisory recovery path for crashed lock holders. It
// runs separately from lock contenders: a contender reaping its own
// blocker races another contender into double ownership.
func main() {
	configPath := flag.String("config", envOr("ZOOID_CONFIG", ""), "path to config YAML")
	interval := flag.Duration("interval", 0, "rescan interval (0 = run once)")
	ageOnly := flag.Bool("force-age-only", false, "reap by age without probing holder liveness")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	locks, err := lockfile.NewManager(cfg.Paths.LockDir)
	if err != nil {
		slog.Error("lock manager", "error", err)
		os.Exit(1)
	}

	arc, err := archive.NewArchive(cfg.Paths.ArchiveDB)
	if err != nil {
		slog.Error("archive", "error", err)
		os.Exit(1)
	}
	defer arc.Close()

	maxAge := cfg.LockMaxAge()
	slog.Info("reaper ready", "lock_dir", cfg.Paths.LockDir, "max_age", maxAge.String(), "age_only", *ageOnly)

	if *interval <= 0 {
		if err := reapOnce(locks, arc, maxAge, *ageOnly); err != nil {
			slog.Error("reap", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return
		case <-ticker.C:
			if err := reapOnce(locks, arc, maxAge, *ageOnly); err != nil {
				slog.Error("reap", "error", err)
			}
		}
	}
}

// #endregion main

// #region reap

func reapOnce(locks *lockfile.Manager, arc *archive.Archive, maxAge time.Duration, ageOnly bool) error {
	var reaped []string
	var err error
	if ageOnly {
		reaped, err = locks.ReapStaleAgeOnly(maxAge)
	} else {
		reaped, err = locks.ReapStale(maxAge)
	}
	if err != nil {
		return err
	}

	for _, name := range reaped {
		slog.Info("reaped stale lock", "name", name)
		logErr := arc.LogEvent(archive.ProvenanceEntry{
			Subject:   name,
			EventType: "lock_reaped",
		})
		if logErr != nil {
			slog.Warn("archive reap event", "name", name, "error", logErr)
		}
	}
	if len(reaped) == 0 {
		slog.Info("no stale locks")
	}
	return nil
}

// #endregion reap

// #region helpers

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(envOr("ZOOID_DATA", ".zooid-trials")), nil
	}
	return config.Load(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
