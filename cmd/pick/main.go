package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/danielpatrickdp/zooid-trials/internal/config"
	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
	"github.com/danielpatrickdp/zooid-trials/internal/orchestrator"
	"github.com/danielpatrickdp/zooid-trials/internal/regret"
	"github.com/danielpatrickdp/zooid-trials/internal/scheduler"
	"github.com/danielpatrickdp/zooid-trials/internal/shaper"
)

// #endregion

// #region main

// pick plans the next trial and prints it as JSON. The external
// orchestrator runs the trial and reports the outcome back through the
// ledger.
func main() {
	configPath := flag.String("config", envOr("ZOOID_CONFIG", ""), "path to config YAML")
	familiesArg := flag.String("families", envOr("ZOOID_FAMILIES", ""), "comma-separated candidate families")
	seed := flag.Int64("seed", 0, "deterministic RNG seed (0 = random)")
	flag.Parse()

	families := splitFamilies(*familiesArg)
	if len(families) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pick --families a,b,c [--config path/to/config.yaml] [--seed N]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	l := ledger.NewLedger(cfg.Paths.Ledger)
	q := regret.NewQueue(l, cfg.Paths.RegretQueue, rng)
	sh := shaper.NewShaper(l, cfg.ShaperConfig())
	sched := scheduler.NewScheduler(l, cfg.Scheduler, rng)

	orch := orchestrator.NewOrchestrator(l, q, sh, sched, nil, orchestrator.Options{
		ReplayPct:     cfg.Regret.ReplayPct,
		HarvestWindow: cfg.Regret.HarvestWindow,
	})

	plan, err := orch.NextTrial(families, cfg.Baseline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode plan: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// #endregion main

// #region helpers

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(envOr("ZOOID_DATA", ".zooid-trials")), nil
	}
	return config.Load(path)
}

func splitFamilies(arg string) []string {
	var out []string
	for _, f := range strings.Split(arg, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
