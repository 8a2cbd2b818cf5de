package promotion

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/danielpatrickdp/zooid-trials/internal/archive"
	"github.com/danielpatrickdp/zooid-trials/internal/bus"
	"github.com/danielpatrickdp/zooid-trials/internal/lockfile"
	"github.com/danielpatrickdp/zooid-trials/internal/registry"
)

// #endregion

// #region config

// PromotionConfig holds the lifecycle thresholds. A probation record is
// promoted at or above MaxFitnessThreshold, demoted at or below
// MinFitnessThreshold, and only ever reclassified with at least
// MinEvidence samples behind it.
type PromotionConfig struct {
	MaxFitnessThreshold float64 `yaml:"max_fitness_threshold"`
	MinFitnessThreshold float64 `yaml:"min_fitness_threshold"`
	MinEvidence         int     `yaml:"min_evidence"`
}

// DefaultPromotionConfig returns the standard thresholds.
func DefaultPromotionConfig() PromotionConfig {
	return PromotionConfig{
		MaxFitnessThreshold: 0.9,
		MinFitnessThreshold: 0.4,
		MinEvidence:         5,
	}
}

// #endregion config

// #region classify

// Candidates are the reclassification lists from one scan.
type Candidates struct {
	Promote []string
	Demote  []string
}

// Classify sorts probation records into promotion and demotion
// candidates. Intermediate fitness is left untouched, on neither list.
// Non-probation records are never reclassified. Output is name-sorted
// for reproducible logs.
func Classify(records map[string]registry.ZooidRecord, config PromotionConfig) Candidates {
	var c Candidates
	for name, rec := range records {
		if rec.LifecycleState != registry.StateProbation {
			continue
		}
		if rec.EvidenceCount < config.MinEvidence {
			continue
		}
		switch {
		case rec.FitnessMean >= config.MaxFitnessThreshold:
			c.Promote = append(c.Promote, name)
		case rec.FitnessMean <= config.MinFitnessThreshold:
			c.Demote = append(c.Demote, name)
		}
	}
	sort.Strings(c.Promote)
	sort.Strings(c.Demote)
	return c
}

// #endregion classify

// #region validator-struct

// Validator periodically scans the lifecycle registry and reclassifies
// workers between probation, graduation, and demotion. All writes happen
// inside the registry's lock-guarded critical section.
type Validator struct {
	registry  *registry.Registry
	config    PromotionConfig
	publisher bus.Publisher
	archive   *archive.Archive // nil = no audit mirror
}

// NewValidator creates a validator. publisher may be nil (signals go to
// the process log); archive may be nil (no audit mirror).
func NewValidator(reg *registry.Registry, config PromotionConfig, publisher bus.Publisher, arc *archive.Archive) *Validator {
	if publisher == nil {
		publisher = bus.LogPublisher{}
	}
	return &Validator{registry: reg, config: config, publisher: publisher, archive: arc}
}

// #endregion validator-struct

// #region scan

// Scan loads the registry and reports candidates without mutating
// anything. Useful for dry runs and the inspect tooling.
func (v *Validator) Scan() (Candidates, error) {
	records, err := v.registry.Load()
	if err != nil {
		return Candidates{}, err
	}
	c := Classify(records, v.config)
	log.Printf("[PROMO] scan: promote=%v demote=%v", c.Promote, c.Demote)
	return c, nil
}

// #endregion scan

// #region apply

// Apply runs one full reclassification as a single critical section:
// acquire lock → load → classify → mutate → save → release. Transitions
// are published on the bus and mirrored into the archive after the lock
// is released.
func (v *Validator) Apply(ctx context.Context) (Candidates, error) {
	var c Candidates
	err := v.registry.Update(func(records map[string]registry.ZooidRecord) error {
		c = Classify(records, v.config)
		for _, name := range c.Promote {
			rec := records[name]
			rec.LifecycleState = registry.StateGraduated
			records[name] = rec
		}
		for _, name := range c.Demote {
			rec := records[name]
			rec.LifecycleState = registry.StateDemoted
			records[name] = rec
		}
		return nil
	})
	if err != nil {
		return Candidates{}, err
	}

	log.Printf("[PROMO] applied: promoted=%v demoted=%v", c.Promote, c.Demote)
	v.announce(ctx, "zooid.promoted", c.Promote, "promoted")
	v.announce(ctx, "zooid.demoted", c.Demote, "demoted")
	return c, nil
}

func (v *Validator) announce(ctx context.Context, topic string, names []string, eventType string) {
	for _, name := range names {
		payload := map[string]string{"name": name}
		if err := v.publisher.Publish(ctx, topic, payload); err != nil {
			log.Printf("[PROMO] publish %s for %s: %v", topic, name, err)
		}
		if v.archive != nil {
			err := v.archive.LogEvent(archive.ProvenanceEntry{
				Subject:   name,
				EventType: eventType,
				Detail:    fmt.Sprintf("min_evidence=%d", v.config.MinEvidence),
			})
			if err != nil {
				log.Printf("[PROMO] archive %s for %s: %v", eventType, name, err)
			}
		}
	}
}

// #endregion apply

// #region run

// Run executes Apply on a fixed interval until ctx is cancelled. Shutdown
// is graceful between cycles only: an in-flight critical section always
// completes or fails explicitly, never abandons the lock. Lock contention
// is expected with multiple validator instances and simply yields the
// turn to the holder.
func (v *Validator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[PROMO] shutting down")
			return
		case <-ticker.C:
			if _, err := v.Apply(ctx); err != nil {
				if errors.Is(err, lockfile.ErrHeld) {
					log.Printf("[PROMO] registry busy, yielding this cycle")
					continue
				}
				log.Printf("[PROMO] apply failed: %v", err)
			}
		}
	}
}

// #endregion run
