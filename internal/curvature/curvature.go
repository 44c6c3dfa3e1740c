// Package curvature derives connection and curvature tensors for a static
// spherically symmetric metric ds² = -A(r)c²dt² + B(r)dr² + r²dΩ². With
// α = ½ln A and β = ½ln B every tensor reduces to algebra in A, B and their
// first two radial derivatives, which come either from the model's closed
// form or from refined central differences.
package curvature

// #region imports
import (
	"fmt"
	"math"

	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
)

// #endregion

// #region errors

// EvalError reports a non-finite or undefined curvature quantity at a
// specific radius. It is recoverable per evaluation: the orchestrator
// degrades the affected case and moves on.
type EvalError struct {
	Model    metric.ModelID
	Radius   float64
	Quantity string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("curvature: %s indeterminate for model %s at r=%g", e.Quantity, e.Model, e.Radius)
}

// #endregion

// #region types

// Christoffel holds the nonzero connection coefficients in the equatorial
// plane (θ = π/2), labelled Γ^upper_{lower lower}.
type Christoffel struct {
	TTR   float64 // Γ^t_{tr}
	RTT   float64 // Γ^r_{tt}
	RRR   float64 // Γ^r_{rr}
	RThTh float64 // Γ^r_{θθ}
	RPhPh float64 // Γ^r_{φφ}
	ThRTh float64 // Γ^θ_{rθ}
	PhRPh float64 // Γ^φ_{rφ}
}

// Tensors bundles the curvature quantities at one radius.
type Tensors struct {
	R float64

	Gamma Christoffel

	// diagonal Ricci components, lower indices
	RicciTT   float64
	RicciRR   float64
	RicciThTh float64

	RicciScalar float64

	// diagonal Einstein components G_μν = R_μν - ½g_μν R
	EinsteinTT   float64
	EinsteinRR   float64
	EinsteinThTh float64

	Kretschmann float64

	// ClosedForm is false when the derivatives were obtained by finite
	// differencing; FDRefinements counts the step halvings used.
	ClosedForm    bool
	FDRefinements int
	// Indeterminate marks a finite-difference refinement that never met the
	// agreement tolerance. The tensors hold the best-agreeing estimates but
	// the invariants must not be trusted; the orchestrator degrades such
	// cases.
	Indeterminate bool
}

// Options tunes the finite-difference fallback.
type Options struct {
	// FDTol is the relative agreement between successive step halvings at
	// which refinement stops. Zero selects 1e-10.
	FDTol float64
	// MaxRefine bounds the number of halvings. Zero selects 12.
	MaxRefine int
}

const (
	defaultFDTol     = 1e-10
	defaultMaxRefine = 12
)

// #endregion

// #region derive

// Derive evaluates the connection, Ricci, Einstein and Kretschmann tensors
// for the model at radius r.
func Derive(m metric.Model, r float64, opts Options) (*Tensors, error) {
	if opts.FDTol <= 0 {
		opts.FDTol = defaultFDTol
	}
	if opts.MaxRefine <= 0 {
		opts.MaxRefine = defaultMaxRefine
	}

	p, err := m.Evaluate(r)
	if err != nil {
		return nil, err
	}
	if !isFinitePositive(p.A) || !isFinitePositive(p.B) {
		return nil, &EvalError{Model: m.ID(), Radius: r, Quantity: "metric coefficients"}
	}

	t := &Tensors{R: r, ClosedForm: p.ClosedForm}

	a, b := p.A, p.B
	a1, a2, b1 := p.APrime, p.APrime2, p.BPrime
	if !p.ClosedForm {
		var converged bool
		a1, a2, b1, t.FDRefinements, converged, err = differentiate(m, r, opts)
		if err != nil {
			return nil, err
		}
		t.Indeterminate = !converged
	}

	alpha1 := a1 / (2 * a)
	alpha2 := a2/(2*a) - a1*a1/(2*a*a)
	beta1 := b1 / (2 * b)

	t.Gamma = Christoffel{
		TTR:   a1 / (2 * a),
		RTT:   a1 / (2 * b),
		RRR:   b1 / (2 * b),
		RThTh: -r / b,
		RPhPh: -r / b,
		ThRTh: 1 / r,
		PhRPh: 1 / r,
	}

	core := alpha2 + alpha1*alpha1 - alpha1*beta1
	t.RicciTT = (a / b) * (core + 2*alpha1/r)
	t.RicciRR = -core + 2*beta1/r
	t.RicciThTh = (r*(beta1-alpha1)-1)/b + 1

	t.RicciScalar = -t.RicciTT/a + t.RicciRR/b + 2*t.RicciThTh/(r*r)

	// g_tt = -A, g_rr = B, g_θθ = r²
	t.EinsteinTT = t.RicciTT + 0.5*a*t.RicciScalar
	t.EinsteinRR = t.RicciRR - 0.5*b*t.RicciScalar
	t.EinsteinThTh = t.RicciThTh - 0.5*r*r*t.RicciScalar

	k1 := -core / b
	k2 := -alpha1 / (r * b)
	k3 := beta1 / (r * b)
	k4 := (1 - 1/b) / (r * r)
	t.Kretschmann = 4*k1*k1 + 8*k2*k2 + 8*k3*k3 + 4*k4*k4

	if q, ok := t.firstNonFinite(); !ok {
		return nil, &EvalError{Model: m.ID(), Radius: r, Quantity: q}
	}
	return t, nil
}

// #endregion

// #region finite-difference

// differentiate estimates A', A'' and B' by central differences, halving the
// step until successive A'' estimates agree to the tolerance. Halving past
// the float64 noise floor makes the stencil worse, not better, so when the
// tolerance is never met the estimate with the best successive agreement is
// returned with converged = false, and the caller marks the derivation
// indeterminate.
func differentiate(m metric.Model, r float64, opts Options) (a1, a2, b1 float64, refinements int, converged bool, err error) {
	p0, err := m.Evaluate(r)
	if err != nil {
		return 0, 0, 0, 0, false, err
	}

	h := math.Max(1e-6*r, 1e-3)

	type estimate struct {
		a1, a2, b1 float64
	}
	var prev estimate
	havePrev := false
	best := estimate{}
	bestAgree := math.Inf(1)
	bestStep := 0

	for i := 0; i <= opts.MaxRefine; i++ {
		pp, errP := m.Evaluate(r + h)
		pm, errM := m.Evaluate(r - h)
		if errP != nil || errM != nil {
			return 0, 0, 0, i, false, &EvalError{Model: m.ID(), Radius: r, Quantity: "difference stencil"}
		}

		cur := estimate{
			a1: (pp.A - pm.A) / (2 * h),
			a2: (pp.A - 2*p0.A + pm.A) / (h * h),
			b1: (pp.B - pm.B) / (2 * h),
		}
		if !isFinite(cur.a1) || !isFinite(cur.a2) || !isFinite(cur.b1) {
			return 0, 0, 0, i, false, &EvalError{Model: m.ID(), Radius: r, Quantity: "numerical derivative"}
		}

		if havePrev {
			scale := math.Max(math.Abs(cur.a2), math.Abs(prev.a2))
			agree := math.Abs(cur.a2 - prev.a2)
			if scale > 0 {
				agree /= scale
			}
			if agree <= opts.FDTol {
				return cur.a1, cur.a2, cur.b1, i, true, nil
			}
			if agree < bestAgree {
				bestAgree = agree
				best = cur
				bestStep = i
			}
		}
		prev, havePrev = cur, true
		h /= 2
	}
	return best.a1, best.a2, best.b1, bestStep, false, nil
}

// #endregion

// #region finiteness

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isFinitePositive(v float64) bool {
	return isFinite(v) && v > 0
}

// firstNonFinite names the first indeterminate quantity, if any.
func (t *Tensors) firstNonFinite() (string, bool) {
	checks := []struct {
		name string
		v    float64
	}{
		{"Ricci_tt", t.RicciTT},
		{"Ricci_rr", t.RicciRR},
		{"Ricci_θθ", t.RicciThTh},
		{"Ricci scalar", t.RicciScalar},
		{"Einstein_tt", t.EinsteinTT},
		{"Einstein_rr", t.EinsteinRR},
		{"Einstein_θθ", t.EinsteinThTh},
		{"Kretschmann", t.Kretschmann},
	}
	for _, c := range checks {
		if !isFinite(c.v) {
			return c.name, false
		}
	}
	return "", true
}

// #endregion
