package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/zooid-trials/internal/archive"
	"github.com/danielpatrickdp/zooid-trials/internal/config"
	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
	"github.com/danielpatrickdp/zooid-trials/internal/promotion"
	"github.com/danielpatrickdp/zooid-trials/internal/registry"
)

// #endregion

// #region main

// inspect dumps family statistics from the ledger, lifecycle records,
// pending promotion candidates, and recent archive rows.
func main() {
	configPath := flag.String("config", envOr("ZOOID_CONFIG", ""), "path to config YAML")
	last := flag.Int("last", 20, "show N most recent archive rows")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	report, err := buildReport(cfg, *last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	printReport(report)
}

// #endregion main

// #region report

type familyRow struct {
	Family    string  `json:"family"`
	Successes int     `json:"successes"`
	Attempts  int     `json:"attempts"`
	Rate      float64 `json:"rate"`
	LastSeen  float64 `json:"last_seen"`
}

type report struct {
	Families   []familyRow            `json:"families"`
	Zooids     []registry.ZooidRecord `json:"zooids"`
	Candidates promotion.Candidates   `json:"candidates"`
	Trials     []archive.TrialRow     `json:"recent_trials,omitempty"`
	Events     []archive.EventRow     `json:"recent_events,omitempty"`
	Skipped    int64                  `json:"skipped_ledger_lines"`
}

func buildReport(cfg config.Config, last int) (report, error) {
	var rep report

	l := ledger.NewLedger(cfg.Paths.Ledger)
	records, err := l.ReadRecent(-1)
	if err != nil {
		return rep, err
	}

	byFamily := map[string]*familyRow{}
	for _, rec := range records {
		row, ok := byFamily[rec.Family]
		if !ok {
			row = &familyRow{Family: rec.Family}
			byFamily[rec.Family] = row
		}
		row.Attempts++
		if rec.Passed {
			row.Successes++
		}
		if rec.Timestamp > row.LastSeen {
			row.LastSeen = rec.Timestamp
		}
	}
	for _, row := range byFamily {
		if row.Attempts > 0 {
			row.Rate = float64(row.Successes) / float64(row.Attempts)
		}
		rep.Families = append(rep.Families, *row)
	}
	sort.Slice(rep.Families, func(i, j int) bool {
		return rep.Families[i].Family < rep.Families[j].Family
	})
	rep.Skipped = l.Skipped()

	// Registry reads do not need the lock: inspect never writes.
	reg := registry.NewRegistry(cfg.Paths.Registry, nil)
	zooids, err := reg.Load()
	if err != nil {
		return rep, err
	}
	for _, rec := range zooids {
		rep.Zooids = append(rep.Zooids, rec)
	}
	sort.Slice(rep.Zooids, func(i, j int) bool {
		return rep.Zooids[i].Name < rep.Zooids[j].Name
	})
	rep.Candidates = promotion.Classify(zooids, cfg.Promotion)

	if _, err := os.Stat(cfg.Paths.ArchiveDB); err == nil {
		arc, err := archive.NewArchive(cfg.Paths.ArchiveDB)
		if err != nil {
			return rep, err
		}
		defer arc.Close()
		if rep.Trials, err = arc.RecentTrials(last); err != nil {
			return rep, err
		}
		if rep.Events, err = arc.RecentEvents(last); err != nil {
			return rep, err
		}
	}

	return rep, nil
}

func printReport(rep report) {
	fmt.Println("FAMILIES")
	for _, row := range rep.Families {
		fmt.Printf("  %-24s %3d/%-3d rate=%.2f last_seen=%.0f\n",
			row.Family, row.Successes, row.Attempts, row.Rate, row.LastSeen)
	}
	if len(rep.Families) == 0 {
		fmt.Println("  (no trials recorded)")
	}

	fmt.Println("ZOOIDS")
	for _, rec := range rep.Zooids {
		fmt.Printf("  %-24s %-10s fitness=%.3f evidence=%d\n",
			rec.Name, rec.LifecycleState, rec.FitnessMean, rec.EvidenceCount)
	}
	if len(rep.Zooids) == 0 {
		fmt.Println("  (no workers registered)")
	}

	fmt.Printf("CANDIDATES promote=%v demote=%v\n", rep.Candidates.Promote, rep.Candidates.Demote)

	if len(rep.Events) > 0 {
		fmt.Println("RECENT EVENTS")
		for _, ev := range rep.Events {
			fmt.Printf("  %s %-12s %s %s\n", ev.CreatedAt, ev.EventType, ev.Subject, ev.Detail)
		}
	}
	if rep.Skipped > 0 {
		fmt.Printf("WARNING: %d malformed ledger lines skipped\n", rep.Skipped)
	}
}

// #endregion report

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
