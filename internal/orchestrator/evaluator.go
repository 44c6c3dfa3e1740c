package orchestrator

// #region imports
import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sszproject/ssz-validation/go-engine/internal/config"
	"github.com/sszproject/ssz-validation/go-engine/internal/curvature"
	"github.com/sszproject/ssz-validation/go-engine/internal/geodesic"
	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
	"github.com/sszproject/ssz-validation/go-engine/internal/obs"
	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
	"github.com/sszproject/ssz-validation/go-engine/internal/stats"
)

// #endregion

// #region evaluator

// modelFactory constructs a metric model for one central mass.
type modelFactory func(mass float64) (metric.Model, error)

// evaluator turns one observation into a compared case. A single evaluator
// is shared by all workers; everything it holds is safe for concurrent use.
type evaluator struct {
	cfg   config.Config
	prec  *precision.Context
	cache *predictionCache

	candidateFor modelFactory
	referenceFor modelFactory
}

func newEvaluator(cfg config.Config, prec *precision.Context, cache *predictionCache) *evaluator {
	return &evaluator{
		cfg:   cfg,
		prec:  prec,
		cache: cache,
		candidateFor: func(mass float64) (metric.Model, error) {
			return metric.NewSSZ(mass, metric.SSZOptions{
				Calibration:   cfg.Model.Calibration,
				Saturation:    cfg.Model.Saturation,
				InteriorBlend: cfg.Model.InteriorBlend,
				BlendWidth:    cfg.Model.BlendWidth,
			})
		},
		referenceFor: func(mass float64) (metric.Model, error) {
			return metric.NewSchwarzschild(mass)
		},
	}
}

// #endregion

// #region evaluate-case

// evaluateCase runs the full per-observation pipeline: model construction,
// curvature sanity, optional geodesic cross-check, high-precision redshift
// prediction for both models, then the paired comparison. Failures degrade
// the case instead of aborting the run.
func (e *evaluator) evaluateCase(ctx context.Context, o obs.Observation) Case {
	start := time.Now()
	c := Case{Obs: o}

	degrade := func(reason DegradedReason) Case {
		if ctx.Err() != nil {
			reason = DegradedTimeout
		}
		c.Outcome = stats.OutcomeDegraded
		c.DegradedReason = reason
		c.Elapsed = time.Since(start)
		return c
	}

	candidate, err := e.candidateFor(o.Mass)
	if err != nil {
		return degrade(DegradedNonConvergence)
	}
	reference, err := e.referenceFor(o.Mass)
	if err != nil {
		return degrade(DegradedPrediction)
	}
	c.RadiusRatio = o.Radius / candidate.GravRadius()
	if ctx.Err() != nil {
		return degrade(DegradedTimeout)
	}

	// curvature must be determinate at the emission radius for both models
	copts := curvature.Options{}
	for _, m := range []metric.Model{candidate, reference} {
		tensors, err := curvature.Derive(m, o.Radius, copts)
		if err != nil {
			var evalErr *curvature.EvalError
			if errors.As(err, &evalErr) {
				return degrade(DegradedCurvature)
			}
			return degrade(DegradedPrediction)
		}
		if tensors.Indeterminate {
			return degrade(DegradedCurvature)
		}
		if ctx.Err() != nil {
			return degrade(DegradedTimeout)
		}
	}

	if e.cfg.Geodesic.CrossCheck {
		q := &geodesic.Integrator{
			RelTol:          e.cfg.Geodesic.RelTol,
			MaxSubdivisions: e.cfg.Geodesic.MaxSubdivisions,
		}
		res, err := geodesic.Deflection(ctx, candidate, o.Radius, q)
		if err != nil {
			return degrade(DegradedPrediction)
		}
		if res.LowConfidence {
			return degrade(DegradedLowConfidence)
		}
	}

	c.Candidate, err = e.predict(candidate, o)
	if err != nil {
		return degrade(DegradedPrediction)
	}
	c.Reference, err = e.predict(reference, o)
	if err != nil {
		return degrade(DegradedPrediction)
	}
	if ctx.Err() != nil {
		return degrade(DegradedTimeout)
	}

	c.Delta = c.Reference.AbsError - c.Candidate.AbsError
	if !isFinite(c.Delta) {
		return degrade(DegradedPrediction)
	}
	if c.Delta > 0 {
		c.Outcome = stats.OutcomeWin
	} else {
		c.Outcome = stats.OutcomeLoss
	}
	c.Elapsed = time.Since(start)
	return c
}

// #endregion

// #region predict

// predict computes a model's redshift for one observation, memoized across
// cases with identical physical inputs.
func (e *evaluator) predict(m metric.Model, o obs.Observation) (Prediction, error) {
	key := predictionKey{
		model:  string(m.ID()),
		mass:   o.Mass,
		radius: o.Radius,
		vTotal: o.VTotal,
		vLOS:   o.VLOS,
	}
	z, ok := e.cache.get(key)
	if !ok {
		zBig, err := metric.PredictRedshift(e.prec, m, o.Radius, o.VTotal, o.VLOS)
		if err != nil {
			return Prediction{}, err
		}
		z, _ = zBig.Float64()
		e.cache.put(key, z)
	}
	if !isFinite(z) {
		return Prediction{}, errors.New("orchestrator: non-finite prediction")
	}
	return Prediction{Z: z, AbsError: math.Abs(z - o.ObservedZ)}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// #endregion
