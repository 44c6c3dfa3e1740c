package orchestrator

import (
	"context"
	"math"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/sszproject/ssz-validation/go-engine/internal/config"
	"github.com/sszproject/ssz-validation/go-engine/internal/logging"
	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
	"github.com/sszproject/ssz-validation/go-engine/internal/obs"
	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
	"github.com/sszproject/ssz-validation/go-engine/internal/stats"
)

// #region helpers

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ObservationsDB = filepath.Join(dir, "obs.db")
	cfg.Paths.ResultsDB = filepath.Join(dir, "results.db")
	cfg.Run.Workers = 2
	cfg.Stats.Resamples = 200
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg config.Config) *Orchestrator {
	t.Helper()
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

// predictZ computes the float64 redshift a model family produces for the
// given source, mirroring the engine's own prediction path.
func predictZ(t *testing.T, m metric.Model, radius, vTot, vLOS float64) float64 {
	t.Helper()
	prec, err := precision.New(50)
	if err != nil {
		t.Fatalf("precision.New: %v", err)
	}
	zBig, err := metric.PredictRedshift(prec, m, radius, vTot, vLOS)
	if err != nil {
		t.Fatalf("PredictRedshift: %v", err)
	}
	z, _ := zBig.Float64()
	return z
}

// seedCatalog writes nWins observations whose measured z equals the
// candidate's prediction and nLosses matching the reference instead.
func seedCatalog(t *testing.T, o *Orchestrator, nWins, nLosses int) {
	t.Helper()

	ssz, err := metric.NewSSZ(metric.MSun, metric.SSZOptions{})
	if err != nil {
		t.Fatalf("NewSSZ: %v", err)
	}
	ref, err := metric.NewSchwarzschild(metric.MSun)
	if err != nil {
		t.Fatalf("NewSchwarzschild: %v", err)
	}

	var batch []obs.Observation
	for i := 0; i < nWins; i++ {
		r := metric.RSun * (1 + 0.01*float64(i))
		batch = append(batch, obs.Observation{
			ID: "win-" + string(rune('a'+i)), Mass: metric.MSun, Radius: r,
			ObservedZ: predictZ(t, ssz, r, 0, 0), Sigma: 1e-9,
		})
	}
	for i := 0; i < nLosses; i++ {
		r := metric.RSun * (2 + 0.01*float64(i))
		batch = append(batch, obs.Observation{
			ID: "loss-" + string(rune('a'+i)), Mass: metric.MSun, Radius: r,
			ObservedZ: predictZ(t, ref, r, 0, 0), Sigma: 1e-9,
		})
	}
	if err := o.Observations().Put(batch); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

// nanModel wraps a model and poisons its metric coefficient.
type nanModel struct {
	metric.Model
}

func (m nanModel) Evaluate(r float64) (metric.Point, error) {
	p, err := m.Model.Evaluate(r)
	if err != nil {
		return p, err
	}
	p.A = math.NaN()
	return p, nil
}

// slowModel delays every evaluation long enough to trip a short deadline.
type slowModel struct {
	metric.Model
	delay time.Duration
}

func (m slowModel) Evaluate(r float64) (metric.Point, error) {
	time.Sleep(m.delay)
	return m.Model.Evaluate(r)
}

func (m slowModel) EvalBig(c *precision.Context, r float64) *big.Float {
	time.Sleep(m.delay)
	return m.Model.EvalBig(c, r)
}

// #endregion

// #region run

func TestRunEndToEnd(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))
	seedCatalog(t, o, 5, 2)

	v, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.State != StateReported {
		t.Errorf("state = %s, want %s", v.State, StateReported)
	}
	if v.Summary.Wins != 5 || v.Summary.Losses != 2 || v.Summary.Degraded != 0 {
		t.Errorf("counts = %d/%d/%d, want 5/2/0",
			v.Summary.Wins, v.Summary.Losses, v.Summary.Degraded)
	}
	if v.RunID == "" {
		t.Error("verdict has no run id")
	}

	// the run and its cases are on disk
	recs, err := o.runs.ListCases(v.RunID)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(recs) != 7 {
		t.Errorf("persisted %d cases, want 7", len(recs))
	}
	run, err := o.runs.GetRun(v.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.VerdictJSON == "" {
		t.Error("persisted run has no verdict")
	}

	events, err := logging.ListEvents(o.runs.DB(), v.RunID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) < 4 || events[0].State != string(StateLoaded) ||
		events[len(events)-1].State != string(StateReported) {
		t.Errorf("incomplete event trail: %+v", events)
	}
}

func TestRunEmptyCatalog(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))
	if _, err := o.Run(context.Background()); err == nil {
		t.Error("empty catalog did not fail the run")
	}
}

// #endregion

// #region degradation

func TestIndeterminateCurvatureDegradesCase(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))
	seedCatalog(t, o, 3, 1)

	// poison the candidate for every case
	inner := o.eval.candidateFor
	o.eval.candidateFor = func(mass float64) (metric.Model, error) {
		m, err := inner(mass)
		if err != nil {
			return nil, err
		}
		return nanModel{m}, nil
	}

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("run with zero informative cases should fail aggregation")
	}
}

func TestDegradedCasesStayInTotalsOnly(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))
	seedCatalog(t, o, 3, 1)

	// poison only the most massive... instead: poison by radius band, the
	// loss cases sit at 2 R_sun and beyond
	inner := o.eval.candidateFor
	o.eval.candidateFor = func(mass float64) (metric.Model, error) {
		m, err := inner(mass)
		if err != nil {
			return nil, err
		}
		return poisonAbove{m, 1.5 * metric.RSun}, nil
	}

	v, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Summary.Degraded != 1 {
		t.Fatalf("degraded = %d, want 1", v.Summary.Degraded)
	}
	if v.Summary.Total != 4 {
		t.Errorf("total = %d, want 4 including the degraded case", v.Summary.Total)
	}
	if want := 1.0; v.Summary.WinRate != want {
		t.Errorf("win rate = %g, want %g with the loss case degraded", v.Summary.WinRate, want)
	}

	for _, c := range v.Cases {
		if c.Outcome == stats.OutcomeDegraded && c.DegradedReason != DegradedCurvature {
			t.Errorf("case %s degraded for %q, want %q", c.Obs.ID, c.DegradedReason, DegradedCurvature)
		}
	}
}

// poisonAbove yields NaN coefficients beyond a radius threshold.
type poisonAbove struct {
	metric.Model
	above float64
}

func (m poisonAbove) Evaluate(r float64) (metric.Point, error) {
	p, err := m.Model.Evaluate(r)
	if err != nil {
		return p, err
	}
	if r >= m.above {
		p.A = math.NaN()
	}
	return p, nil
}

// numericDerivs strips a model's analytic derivatives so curvature falls
// back to finite differencing.
type numericDerivs struct {
	metric.Model
}

func (m numericDerivs) Evaluate(r float64) (metric.Point, error) {
	p, err := m.Model.Evaluate(r)
	if err != nil {
		return p, err
	}
	p.APrime, p.APrime2, p.BPrime = 0, 0, 0
	p.ClosedForm = false
	return p, nil
}

func TestNoisyRefinementDegradesCase(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t))

	inner := o.eval.candidateFor
	o.eval.candidateFor = func(mass float64) (metric.Model, error) {
		m, err := inner(mass)
		if err != nil {
			return nil, err
		}
		return numericDerivs{m}, nil
	}

	// a compact body keeps the difference stencil well conditioned, yet the
	// refinement still bottoms out above the default agreement tolerance, so
	// the case must degrade rather than report untrusted invariants
	mass := 0.1 * metric.C * metric.C / (2 * metric.G)
	observation := obs.Observation{ID: "compact-a", Mass: mass, Radius: 1.0, ObservedZ: 0.03, Sigma: 1e-9}

	c := o.eval.evaluateCase(context.Background(), observation)
	if c.Outcome != stats.OutcomeDegraded {
		t.Fatalf("outcome = %q, want degraded", c.Outcome)
	}
	if c.DegradedReason != DegradedCurvature {
		t.Errorf("degraded reason = %q, want %q", c.DegradedReason, DegradedCurvature)
	}
}

func TestCaseTimeoutDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.CaseTimeoutMillis = 1
	o := newTestOrchestrator(t, cfg)
	seedCatalog(t, o, 1, 0)

	inner := o.eval.candidateFor
	o.eval.candidateFor = func(mass float64) (metric.Model, error) {
		m, err := inner(mass)
		if err != nil {
			return nil, err
		}
		return slowModel{m, 30 * time.Millisecond}, nil
	}

	_, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("single-case run should fail aggregation when its case times out")
	}

	// the degraded case itself is still classified correctly
	prec, _ := precision.New(10)
	cache, _ := newPredictionCache(8)
	ev := newEvaluator(cfg, prec, cache)
	ev.candidateFor = o.eval.candidateFor

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	c := ev.evaluateCase(ctx, obs.Observation{
		ID: "slow", Mass: metric.MSun, Radius: metric.RSun, ObservedZ: 2e-6,
	})
	if c.Outcome != stats.OutcomeDegraded || c.DegradedReason != DegradedTimeout {
		t.Errorf("case = %s/%s, want degraded/timeout", c.Outcome, c.DegradedReason)
	}
}

// #endregion

// #region determinism

func TestRunIsOrderIndependent(t *testing.T) {
	run := func(workers int) Verdict {
		cfg := testConfig(t)
		cfg.Run.Workers = workers
		o := newTestOrchestrator(t, cfg)
		seedCatalog(t, o, 4, 3)
		v, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}
		return v
	}

	serial := run(1)
	parallel := run(8)

	if serial.Summary.Wins != parallel.Summary.Wins ||
		serial.Summary.Losses != parallel.Summary.Losses ||
		serial.Summary.PValue != parallel.Summary.PValue ||
		serial.Summary.DeltaCI != parallel.Summary.DeltaCI {
		t.Errorf("worker count changed the verdict:\n 1: %+v\n 8: %+v",
			serial.Summary, parallel.Summary)
	}

	for i := range serial.Cases {
		if serial.Cases[i].Obs.ID != parallel.Cases[i].Obs.ID {
			t.Fatalf("case order differs at %d: %s vs %s",
				i, serial.Cases[i].Obs.ID, parallel.Cases[i].Obs.ID)
		}
	}
}

// #endregion

// #region configuration

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Precision.Digits = 5000
	if _, err := New(cfg); err == nil {
		t.Error("out-of-budget precision accepted")
	}
}

// #endregion
