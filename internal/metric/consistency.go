package metric

// #region imports
import (
	"fmt"
	"math"
)

// #endregion

// #region report

// ConsistencyReport summarizes the physical sanity checks a model must pass
// before it enters a validation run.
type ConsistencyReport struct {
	AsymptoticallyFlat bool
	Causal             bool
	Smooth             bool

	// FarFieldA is A at the outermost probe radius; flatness requires it
	// to approach 1.
	FarFieldA float64
	// MaxA is the largest coefficient seen over the probe range.
	MaxA float64

	Notes []string
}

// OK reports whether every check passed.
func (r ConsistencyReport) OK() bool {
	return r.AsymptoticallyFlat && r.Causal && r.Smooth
}

// #endregion

// #region check

const (
	flatnessTol  = 1e-6
	causalityTol = 1e-12
	// probe radii span [1.5·r_s, 1e8·r_s] on a log grid
	probeLo    = 1.5
	probeHi    = 1e8
	probeCount = 160
)

// CheckConsistency probes the model on a logarithmic radius grid and
// verifies asymptotic flatness (A → 1 far out), causality (A ≤ 1 outside
// the gravitational radius) and smoothness (no sign flips or jumps in the
// sampled coefficient).
func CheckConsistency(m Model) (ConsistencyReport, error) {
	rep := ConsistencyReport{Causal: true, Smooth: true}
	rs := m.GravRadius()

	logLo := math.Log(probeLo * rs)
	logHi := math.Log(probeHi * rs)

	var prev float64
	var prevSet bool
	for i := 0; i < probeCount; i++ {
		r := math.Exp(logLo + (logHi-logLo)*float64(i)/float64(probeCount-1))
		p, err := m.Evaluate(r)
		if err != nil {
			return rep, fmt.Errorf("metric: consistency probe at r=%g: %w", r, err)
		}
		if math.IsNaN(p.A) || math.IsInf(p.A, 0) || p.A <= 0 {
			rep.Smooth = false
			rep.Notes = append(rep.Notes, fmt.Sprintf("non-positive or non-finite A=%g at r=%g", p.A, r))
			continue
		}
		if p.A > rep.MaxA {
			rep.MaxA = p.A
		}
		if p.A > 1+causalityTol {
			rep.Causal = false
			rep.Notes = append(rep.Notes, fmt.Sprintf("superluminal coefficient A=%g at r=%g", p.A, r))
		}
		// the coefficient must grow monotonically toward 1 outside the
		// transition region; a decrease on the outer half of the grid
		// indicates a series artifact
		if prevSet && i > probeCount/2 && p.A < prev*(1-1e-9) {
			rep.Smooth = false
			rep.Notes = append(rep.Notes, fmt.Sprintf("non-monotonic far field at r=%g", r))
		}
		prev, prevSet = p.A, true
		if i == probeCount-1 {
			rep.FarFieldA = p.A
		}
	}

	rep.AsymptoticallyFlat = math.Abs(rep.FarFieldA-1) < flatnessTol
	if !rep.AsymptoticallyFlat {
		rep.Notes = append(rep.Notes, fmt.Sprintf("far-field A=%g deviates from flatness", rep.FarFieldA))
	}
	return rep, nil
}

// #endregion
