// Package orchestrator drives a validation run end to end: load the
// observation catalog, evaluate both metric models on every case in a
// bounded worker pool, compare the paired predictions, aggregate the
// statistics and persist the verdict. Individual case failures degrade the
// case; only configuration and storage failures abort the run.
package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sszproject/ssz-validation/go-engine/internal/config"
	"github.com/sszproject/ssz-validation/go-engine/internal/logging"
	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
	"github.com/sszproject/ssz-validation/go-engine/internal/obs"
	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
	"github.com/sszproject/ssz-validation/go-engine/internal/results"
	"github.com/sszproject/ssz-validation/go-engine/internal/stats"
)

// #endregion

// #region orchestrator

// Orchestrator owns the run pipeline and its stores.
type Orchestrator struct {
	cfg  config.Config
	prec *precision.Context
	eval *evaluator

	observations *obs.Store
	runs         *results.Store
}

// New validates the configuration into a ready pipeline. Configuration
// errors here are fatal; nothing has been evaluated yet.
func New(cfg config.Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prec, err := precision.New(cfg.Precision.Digits)
	if err != nil {
		return nil, err
	}
	cache, err := newPredictionCache(cfg.Run.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("prediction cache: %w", err)
	}
	obsStore, err := obs.NewStore(cfg.Paths.ObservationsDB)
	if err != nil {
		return nil, fmt.Errorf("observation store: %w", err)
	}
	runStore, err := results.NewStore(cfg.Paths.ResultsDB)
	if err != nil {
		obsStore.Close()
		return nil, fmt.Errorf("results store: %w", err)
	}

	return &Orchestrator{
		cfg:          cfg,
		prec:         prec,
		eval:         newEvaluator(cfg, prec, cache),
		observations: obsStore,
		runs:         runStore,
	}, nil
}

// Close releases both stores.
func (o *Orchestrator) Close() error {
	err1 := o.observations.Close()
	err2 := o.runs.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Observations exposes the catalog store for import tooling.
func (o *Orchestrator) Observations() *obs.Store {
	return o.observations
}

// logState records a pipeline transition in the run event trail. Event
// logging never fails the run.
func (o *Orchestrator) logState(runID string, s State, detail string) {
	err := logging.LogEvent(o.runs.DB(), logging.EventEntry{
		RunID:  runID,
		State:  string(s),
		Detail: detail,
	})
	if err != nil {
		log.Printf("[ORCH] failed to record %s event: %v", s, err)
	}
}

// checkModels runs the far-field consistency checks once per distinct mass
// in the catalog. Failures are surfaced in the log; individual cases are
// still evaluated and degrade on their own merits.
func (o *Orchestrator) checkModels(catalog []obs.Observation) {
	seen := make(map[float64]bool)
	for _, observation := range catalog {
		if seen[observation.Mass] {
			continue
		}
		seen[observation.Mass] = true

		for _, build := range []modelFactory{o.eval.candidateFor, o.eval.referenceFor} {
			m, err := build(observation.Mass)
			if err != nil {
				log.Printf("[ORCH] model construction failed at mass %.6g: %v", observation.Mass, err)
				continue
			}
			report, err := metric.CheckConsistency(m)
			if err != nil {
				log.Printf("[ORCH] consistency check failed for %s at mass %.6g: %v", m.ID(), observation.Mass, err)
				continue
			}
			if !report.OK() {
				log.Printf("[ORCH] %s inconsistent at mass %.6g: %v", m.ID(), observation.Mass, report.Notes)
			}
		}
	}
}

func (o *Orchestrator) workers() int {
	if o.cfg.Run.Workers > 0 {
		return o.cfg.Run.Workers
	}
	return runtime.NumCPU()
}

// #endregion

// #region run

// Run executes one full validation pass over the catalog.
func (o *Orchestrator) Run(ctx context.Context) (Verdict, error) {
	started := time.Now()

	catalog, err := o.observations.List()
	if err != nil {
		return Verdict{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(catalog) == 0 {
		return Verdict{}, fmt.Errorf("orchestrator: observation catalog is empty")
	}
	log.Printf("[ORCH] %s: %d observations, %d workers, %d digits",
		StateLoaded, len(catalog), o.workers(), o.cfg.Precision.Digits)

	runID, err := o.runs.BeginRun(o.cfg)
	if err != nil {
		return Verdict{}, fmt.Errorf("begin run: %w", err)
	}
	o.checkModels(catalog)
	o.logState(runID, StateLoaded, fmt.Sprintf("%d observations", len(catalog)))

	timeout := time.Duration(o.cfg.Run.CaseTimeoutMillis) * time.Millisecond
	cases := make([]Case, len(catalog))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for i, observation := range catalog {
		i, observation := i, observation
		g.Go(func() error {
			caseCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			cases[i] = o.eval.evaluateCase(caseCtx, observation)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Verdict{}, err
	}
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	log.Printf("[ORCH] %s: %d cases evaluated", StateEvaluated, len(cases))
	o.logState(runID, StateEvaluated, fmt.Sprintf("%d cases", len(cases)))

	// deterministic aggregation order regardless of worker scheduling
	sort.Slice(cases, func(i, j int) bool { return cases[i].Obs.ID < cases[j].Obs.ID })
	log.Printf("[ORCH] %s: outcomes fixed", StateCompared)
	o.logState(runID, StateCompared, "")

	verdict, err := o.aggregate(runID, cases, started)
	if err != nil {
		// keep the evaluated cases on record even when aggregation fails
		if recErr := o.runs.RecordCases(runID, toRecords(cases)); recErr != nil {
			log.Printf("[ORCH] failed to record cases after aggregation error: %v", recErr)
		}
		return Verdict{}, err
	}

	if err := o.persist(runID, verdict); err != nil {
		return Verdict{}, err
	}
	verdict.State = StateReported
	o.logState(runID, StateReported, fmt.Sprintf("p=%.6g", verdict.Summary.PValue))
	log.Printf("[ORCH] %s: run %s wins=%d losses=%d degraded=%d p=%.3g",
		StateReported, runID, verdict.Summary.Wins, verdict.Summary.Losses,
		verdict.Summary.Degraded, verdict.Summary.PValue)
	return verdict, nil
}

// #endregion

// #region aggregate

func (o *Orchestrator) aggregate(runID string, cases []Case, started time.Time) (Verdict, error) {
	sc := make([]stats.Case, len(cases))
	for i, c := range cases {
		sc[i] = stats.Case{
			ID:          c.Obs.ID,
			Delta:       c.Delta,
			RadiusRatio: c.RadiusRatio,
			Outcome:     c.Outcome,
		}
	}

	opts := stats.Options{
		Resamples:   o.cfg.Stats.Resamples,
		Seed:        o.cfg.Stats.Seed,
		Alternative: o.cfg.Stats.Alternative,
		Confidence:  o.cfg.Stats.Confidence,
	}
	summary, err := stats.Evaluate(sc, opts)
	if err != nil {
		return Verdict{}, fmt.Errorf("aggregate: %w", err)
	}
	strata, err := stats.StratifiedEvaluate(sc, o.cfg.Stats.StrataCutoffs, opts)
	if err != nil {
		return Verdict{}, fmt.Errorf("stratify: %w", err)
	}
	log.Printf("[ORCH] %s: win rate %.3f over %d informative cases",
		StateAggregated, summary.WinRate, summary.Wins+summary.Losses)
	o.logState(runID, StateAggregated, fmt.Sprintf("win_rate=%.3f", summary.WinRate))

	return Verdict{
		RunID:    runID,
		State:    StateAggregated,
		Summary:  summary,
		Strata:   strata,
		Cases:    cases,
		Started:  started,
		Finished: time.Now(),
	}, nil
}

// #endregion

// #region persist

func toRecords(cases []Case) []results.CaseRecord {
	recs := make([]results.CaseRecord, len(cases))
	for i, c := range cases {
		recs[i] = results.CaseRecord{
			ObsID:          c.Obs.ID,
			CandidateZ:     c.Candidate.Z,
			ReferenceZ:     c.Reference.Z,
			ObservedZ:      c.Obs.ObservedZ,
			Delta:          c.Delta,
			Outcome:        string(c.Outcome),
			DegradedReason: string(c.DegradedReason),
		}
	}
	return recs
}

func (o *Orchestrator) persist(runID string, v Verdict) error {
	if err := o.runs.RecordCases(runID, toRecords(v.Cases)); err != nil {
		return fmt.Errorf("record cases: %w", err)
	}

	verdictDoc := map[string]any{
		"wins":     v.Summary.Wins,
		"losses":   v.Summary.Losses,
		"degraded": v.Summary.Degraded,
		"total":    v.Summary.Total,
		"win_rate": v.Summary.WinRate,
		"p_value":  v.Summary.PValue,
		"delta_ci": map[string]float64{
			"level":  v.Summary.DeltaCI.Level,
			"lo":     v.Summary.DeltaCI.Lo,
			"hi":     v.Summary.DeltaCI.Hi,
			"median": v.Summary.DeltaCI.Median,
		},
	}
	if err := o.runs.FinishRun(runID, verdictDoc); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// #endregion
