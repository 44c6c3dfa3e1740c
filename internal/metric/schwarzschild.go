package metric

// #region imports
import (
	"fmt"
	"math"
	"math/big"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #endregion

// #region model

// Schwarzschild is the exact vacuum reference metric: A(r) = 1 - r_s/r,
// B = 1/A. Evaluation is exterior only; radii at or inside the horizon
// resolve to the one-sided limit.
type Schwarzschild struct {
	mass float64
	rs   float64
}

// NewSchwarzschild builds the reference model for a central mass [kg].
func NewSchwarzschild(mass float64) (*Schwarzschild, error) {
	if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("metric: invalid mass %g", mass)
	}
	return &Schwarzschild{mass: mass, rs: SchwarzschildRadius(mass)}, nil
}

func (m *Schwarzschild) ID() ModelID         { return ModelSchwarzschild }
func (m *Schwarzschild) Mass() float64       { return m.mass }
func (m *Schwarzschild) GravRadius() float64 { return m.rs }

// #endregion

// #region evaluate

// horizonMargin bounds evaluation away from r_s, where A degenerates and B
// diverges. Radii at or inside r_s·(1+margin) evaluate to the one-sided
// limit taken just outside the margin rather than failing.
const horizonMargin = 1e-9

// Evaluate returns the metric components at radius r. At or inside the
// horizon the components are the one-sided exterior limit.
func (m *Schwarzschild) Evaluate(r float64) (Point, error) {
	if r <= 0 || math.IsNaN(r) {
		return Point{}, ErrNonPositiveRadius
	}
	if r <= m.rs*(1+horizonMargin) {
		r = m.rs * (1 + horizonMargin)
	}

	a := 1 - m.rs/r
	a1 := m.rs / (r * r)
	a2 := -2 * m.rs / (r * r * r)

	b := 1 / a
	b1 := -a1 * b * b

	return Point{
		R:          r,
		A:          a,
		B:          b,
		APrime:     a1,
		APrime2:    a2,
		BPrime:     b1,
		ClosedForm: true,
	}, nil
}

// EvalBig computes A(r) = 1 - r_s/r on the precision context, with the same
// one-sided horizon limit as Evaluate so A stays positive.
func (m *Schwarzschild) EvalBig(c *precision.Context, r float64) *big.Float {
	if r <= m.rs*(1+horizonMargin) {
		r = m.rs * (1 + horizonMargin)
	}
	return c.Sub(c.FromInt(1), c.Div(c.FromFloat64(m.rs), c.FromFloat64(r)))
}

// #endregion
