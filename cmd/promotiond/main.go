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
	"github.com/danielpatrickdp/zooid-trials/internal/bus"
	"github.com/danielpatrickdp/zooid-trials/internal/config"
	"github.com/danielpatrickdp/zooid-trials/internal/lockfile"
	"github.com/danielpatrickdp/zooid-trials/internal/promotion"
	"github.com/danielpatrickdp/zooid-trials/internal/registry"
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

// promotiond periodically scans the lifecycle registry and promotes or
// demotes probation workers under the registry lock.
func main() {
	configPath := flag.String("config", envOr("ZOOID_CONFIG", ""), "path to config YAML")
	interval := flag.Duration("interval", 30*time.Second, "scan interval")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Paths.LockDir, 0o755); err != nil {
		slog.Error("create lock dir", "error", err)
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

	reg := registry.NewRegistry(cfg.Paths.Registry, locks)
	validator := promotion.NewValidator(reg, cfg.Promotion, bus.LogPublisher{}, arc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("promotiond ready",
		"registry", cfg.Paths.Registry,
		"interval", interval.String(),
		"min_evidence", cfg.Promotion.MinEvidence)

	validator.Run(ctx, *interval)
	slog.Info("promotiond stopped")
}

// #endregion main

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
