package orchestrator

// #region imports
import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/zooid-trials/internal/archive"
	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
	"github.com/danielpatrickdp/zooid-trials/internal/regret"
	"github.com/danielpatrickdp/zooid-trials/internal/scheduler"
	"github.com/danielpatrickdp/zooid-trials/internal/shaper"
)

// #endregion

// #region orchestrator-struct

// Orchestrator is the top-level glue of the trial loop: it merges the
// bandit's pick with the regret bias, shapes constraints, and records
// outcomes. The trial itself runs out of process.
type Orchestrator struct {
	ledger    *ledger.Ledger
	regrets   *regret.Queue
	shaper    *shaper.Shaper
	scheduler *scheduler.Scheduler
	archive   *archive.Archive // nil = no audit mirror
	opts      Options
}

// NewOrchestrator wires the planning loop. archive may be nil.
func NewOrchestrator(
	l *ledger.Ledger,
	regrets *regret.Queue,
	sh *shaper.Shaper,
	sched *scheduler.Scheduler,
	arc *archive.Archive,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		ledger:    l,
		regrets:   regrets,
		shaper:    sh,
		scheduler: sched,
		archive:   arc,
		opts:      opts,
	}
}

// #endregion orchestrator-struct

// #region next-trial

// NextTrial plans the next trial. A regret replay, when the dice land,
// takes precedence over the bandit's pick and carries its hint into the
// plan; otherwise the bandit decides. The only error is an empty family
// list; everything else degrades and logs.
func (o *Orchestrator) NextTrial(families []string, baseline shaper.Constraints) (TrialPlan, error) {
	picked, err := o.scheduler.Pick(families)
	if err != nil {
		return TrialPlan{}, err
	}

	plan := TrialPlan{
		TrialID: uuid.New().String(),
		Family:  picked,
	}

	item, err := o.regrets.MaybeReplay(o.opts.ReplayPct)
	if err != nil {
		log.Printf("[ORCH] regret replay unavailable: %v", err)
	} else if item != nil {
		plan.Family = item.Family
		plan.RegretHint = item.Hint
		plan.FromRegret = true
	}

	plan.Constraints, plan.Mode, plan.PassRate = o.shaper.Shape(plan.Family, baseline)

	log.Printf("[ORCH] plan: trial=%s family=%s mode=%s rate=%.2f regret=%v",
		plan.TrialID, plan.Family, plan.Mode, plan.PassRate, plan.FromRegret)
	return plan, nil
}

// #endregion next-trial

// #region record-outcome

// RecordOutcome appends the trial to the ledger, harvests the failure
// into the regret queue, and mirrors the outcome into the archive. The
// ledger append is the one write that must succeed; the rest is
// best-effort and logged.
func (o *Orchestrator) RecordOutcome(outcome TrialOutcome) error {
	if outcome.Plan.Family == "" {
		return fmt.Errorf("record outcome: plan has no family")
	}

	rec := ledger.TrialRecord{
		Family:  outcome.Plan.Family,
		Passed:  outcome.Passed,
		Metrics: outcome.Metrics,
	}
	if err := o.ledger.Append(rec); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	if !outcome.Passed {
		// Harvest just the record we appended.
		if added, err := o.regrets.Enqueue(1); err != nil {
			log.Printf("[ORCH] regret enqueue failed: %v", err)
		} else if added > 0 {
			log.Printf("[ORCH] queued %d regret item(s) for %s", added, outcome.Plan.Family)
		}
	}

	if o.archive != nil {
		if err := o.archive.RecordTrial(outcome.Plan.TrialID, rec); err != nil {
			log.Printf("[ORCH] archive mirror failed: %v", err)
		}
	}

	log.Printf("[ORCH] recorded: trial=%s family=%s passed=%v",
		outcome.Plan.TrialID, outcome.Plan.Family, outcome.Passed)
	return nil
}

// #endregion record-outcome

// #region harvest

// HarvestRegrets refreshes the regret queue from the recent ledger
// window. Meant for periodic supervisory runs, not the per-outcome path.
func (o *Orchestrator) HarvestRegrets() (int, error) {
	return o.regrets.Enqueue(o.opts.HarvestWindow)
}

// #endregion harvest
