package orchestrator

// #region imports
import (
	"time"

	"github.com/sszproject/ssz-validation/go-engine/internal/obs"
	"github.com/sszproject/ssz-validation/go-engine/internal/stats"
)

// #endregion

// #region state

// State tracks the pipeline phase of a validation run.
type State string

const (
	StateLoaded     State = "loaded"
	StateEvaluated  State = "evaluated"
	StateCompared   State = "compared"
	StateAggregated State = "aggregated"
	StateReported   State = "reported"
)

// #endregion

// #region degraded-reason

// DegradedReason categorizes why a case carries no comparative signal.
type DegradedReason string

const (
	DegradedNone DegradedReason = ""
	// DegradedTimeout means the per-case deadline expired mid-evaluation.
	DegradedTimeout DegradedReason = "timeout"
	// DegradedCurvature means a curvature tensor came out indeterminate.
	DegradedCurvature DegradedReason = "curvature"
	// DegradedNonConvergence means an iterative solve hit its budget.
	DegradedNonConvergence DegradedReason = "non_convergence"
	// DegradedLowConfidence means the geodesic quadrature exhausted its
	// subdivision budget before reaching the error target.
	DegradedLowConfidence DegradedReason = "low_confidence"
	// DegradedPrediction means the redshift prediction itself failed.
	DegradedPrediction DegradedReason = "prediction"
)

// #endregion

// #region case

// Prediction is one model's answer for one observation.
type Prediction struct {
	Z float64
	// AbsError is |Z - observed|.
	AbsError float64
}

// Case is one fully evaluated observation.
type Case struct {
	Obs obs.Observation

	Candidate Prediction
	Reference Prediction

	// Delta is reference error minus candidate error; positive means the
	// candidate predicted closer.
	Delta float64
	// RadiusRatio is r/r_s for stratification.
	RadiusRatio float64

	Outcome        stats.Outcome
	DegradedReason DegradedReason
	Elapsed        time.Duration
}

// #endregion

// #region verdict

// Verdict is the final product of a run.
type Verdict struct {
	RunID string
	State State

	Summary stats.Summary
	Strata  []stats.StratumResult

	Cases []Case

	Started  time.Time
	Finished time.Time
}

// #endregion
