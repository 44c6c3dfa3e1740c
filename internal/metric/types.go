// Package metric defines the spacetime-metric model abstraction and its two
// implementations: the segmented-spacetime φ-spiral model under test and the
// Schwarzschild reference model. Models are constructed once per central mass
// and are stateless afterwards, so a single instance may be queried from many
// goroutines.
package metric

// #region imports
import (
	"errors"
	"math/big"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #endregion

// #region model-id

// ModelID identifies a metric model variant.
type ModelID string

const (
	ModelSSZ           ModelID = "ssz"
	ModelSchwarzschild ModelID = "schwarzschild"
)

// #endregion

// #region calibration

// Calibration selects the φ²(r) law of the SSZ model.
type Calibration string

const (
	// Calibration1PN uses φ² = 2U with U = GM/(rc²).
	Calibration1PN Calibration = "1pn"
	// Calibration2PN uses φ² = 2U(1 + U/3), matching the reference model to
	// second post-Newtonian order in the weak field.
	Calibration2PN Calibration = "2pn"
)

// #endregion

// #region saturation

// Saturation selects the segment-density saturating function. Both
// formulations appear in the source material with materially different
// behaviour near the origin, so the choice is a model parameter.
type Saturation string

const (
	// SaturationExp uses Ξ(r) = 1 - exp(-φ·r/r_s).
	SaturationExp Saturation = "exp"
	// SaturationRational uses Ξ(r) = (φ·r/r_s) / (1 + φ·r/r_s).
	SaturationRational Saturation = "rational"
)

// #endregion

// #region point

// Point carries the diagonal metric components at one radius, in normalized
// units: g_tt = -A·c², g_rr = B, g_θθ = r², g_φφ = r²sin²θ.
//
// When ClosedForm is true the first and second radial derivatives of A and
// the first derivative of B are analytic; otherwise they are zero and the
// caller must fall back to finite differences.
type Point struct {
	R float64

	A float64 // time component, dimensionless
	B float64 // radial component, dimensionless

	APrime  float64
	APrime2 float64
	BPrime  float64

	ClosedForm bool
}

// #endregion

// #region errors

var (
	// ErrNonPositiveRadius rejects evaluation at r ≤ 0.
	ErrNonPositiveRadius = errors.New("metric: radius must be positive")
	// ErrSuperluminal rejects observations with |v_total| ≥ c.
	ErrSuperluminal = errors.New("metric: total velocity must be below c")
)

// #endregion

// #region model-interface

// Model is the closed interface both metric variants implement. The rest of
// the engine is model-agnostic: curvature derivation, geodesic integration
// and redshift prediction all go through this surface.
type Model interface {
	ID() ModelID
	Mass() float64

	// GravRadius returns the model's characteristic radius r_s = 2GM/c².
	GravRadius() float64

	// Evaluate returns the metric components and available closed-form
	// derivatives at radius r [m].
	Evaluate(r float64) (Point, error)

	// EvalBig returns the governing scalar A(r) on the precision context,
	// for redshift prediction at the configured digit budget.
	EvalBig(c *precision.Context, r float64) *big.Float
}

// #endregion

// #region redshift

// GravRedshift returns the gravitational redshift factor 1+z for light
// emitted at rEmit and observed at infinity: 1/√A(rEmit).
func GravRedshift(c *precision.Context, m Model, rEmit float64) *big.Float {
	a := m.EvalBig(c, rEmit)
	return c.Div(c.FromInt(1), c.Sqrt(a))
}

// PredictRedshift composes the gravitational factor with the
// special-relativistic Doppler factor from the star's total and
// line-of-sight velocities [m/s]:
//
//	1 + z = (1/√A(r)) · (1 + v_los/c) / √(1 - v_tot²/c²)
//
// The returned value is z itself.
func PredictRedshift(c *precision.Context, m Model, rEmit, vTotal, vLOS float64) (*big.Float, error) {
	if rEmit <= 0 {
		return nil, ErrNonPositiveRadius
	}
	if vTotal >= C || vTotal <= -C {
		return nil, ErrSuperluminal
	}

	grav := GravRedshift(c, m, rEmit)

	beta := c.Div(c.FromFloat64(vLOS), c.FromFloat64(C))
	betaTot := c.Div(c.FromFloat64(vTotal), c.FromFloat64(C))
	one := c.FromInt(1)

	num := c.Add(one, beta)
	den := c.Sqrt(c.Sub(one, c.Mul(betaTot, betaTot)))
	doppler := c.Div(num, den)

	factor := c.Mul(grav, doppler)
	return c.Sub(factor, one), nil
}

// #endregion
