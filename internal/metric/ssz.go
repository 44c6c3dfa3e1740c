package metric

// #region imports
import (
	"fmt"
	"math"
	"math/big"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #endregion

// #region options

// SSZOptions configures the segmented-spacetime model.
type SSZOptions struct {
	// Calibration selects the φ²(r) law; defaults to Calibration2PN.
	Calibration Calibration
	// Saturation selects the segment-density form; defaults to SaturationExp.
	Saturation Saturation
	// InteriorBlend switches the model to the blended coefficient that joins
	// the segment-density interior with the far-field series. The blended
	// coefficient has no analytic derivatives, so curvature derivation
	// falls back to finite differences.
	InteriorBlend bool
	// BlendWidth is the tanh transition width as a fraction of the
	// intersection radius; defaults to DefaultBlendWidth.
	BlendWidth float64
}

// #endregion

// #region model

// SSZ is the calibrated φ-spiral metric: A(r) = sech²φ(r), B = 1/A, with
// φ²(r) fixed by the calibration against the weak-field expansion.
type SSZ struct {
	mass float64
	rs   float64
	cal  Calibration
	sat  Saturation

	blend bool
	rStar float64
	width float64
}

// NewSSZ builds the segmented-spacetime model for a central mass [kg].
func NewSSZ(mass float64, opts SSZOptions) (*SSZ, error) {
	if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("metric: invalid mass %g", mass)
	}
	if opts.Calibration == "" {
		opts.Calibration = Calibration2PN
	}
	if opts.Saturation == "" {
		opts.Saturation = SaturationExp
	}
	if opts.BlendWidth == 0 {
		opts.BlendWidth = DefaultBlendWidth
	}

	m := &SSZ{
		mass:  mass,
		rs:    SchwarzschildRadius(mass),
		cal:   opts.Calibration,
		sat:   opts.Saturation,
		blend: opts.InteriorBlend,
		width: opts.BlendWidth,
	}
	if m.blend {
		rStar, _, err := FindIntersection(m.sat, m.rs)
		if err != nil {
			return nil, fmt.Errorf("metric: blend transition radius: %w", err)
		}
		m.rStar = rStar
	}
	return m, nil
}

func (m *SSZ) ID() ModelID         { return ModelSSZ }
func (m *SSZ) Mass() float64       { return m.mass }
func (m *SSZ) GravRadius() float64 { return m.rs }

// #endregion

// #region phi-field

// phiSquared returns s = φ²(r) and its first two radial derivatives for the
// active calibration, with U = GM/(rc²).
func (m *SSZ) phiSquared(r float64) (s, s1, s2 float64) {
	u := G * m.mass / (r * C * C)
	switch m.cal {
	case Calibration1PN:
		s = 2 * u
		s1 = -2 * u / r
		s2 = 4 * u / (r * r)
	default:
		s = 2 * u * (1 + u/3)
		s1 = -(2 * u / r) * (1 + 2*u/3)
		s2 = (4 * u / (r * r)) * (1 + u)
	}
	return s, s1, s2
}

// #endregion

// #region evaluate

// Evaluate returns the metric components at radius r. The closed-form path
// carries analytic derivatives; the interior-blend path does not.
func (m *SSZ) Evaluate(r float64) (Point, error) {
	if r <= 0 || math.IsNaN(r) {
		return Point{}, ErrNonPositiveRadius
	}

	if m.blend {
		a := ASafe(ABlended(m.sat, r, m.rs, m.rStar, m.width))
		return Point{R: r, A: a, B: 1 / a}, nil
	}

	s, s1, s2 := m.phiSquared(r)
	phi := math.Sqrt(s)
	phi1 := s1 / (2 * phi)
	phi2 := s2/(2*phi) - s1*s1/(4*s*phi)

	ch := math.Cosh(phi)
	th := math.Tanh(phi)
	sech2 := 1 / (ch * ch)

	a := sech2
	a1 := -2 * a * th * phi1
	a2 := -2 * (phi2*a*th + phi1*phi1*a*(sech2-2*th*th))

	b := ch * ch
	b1 := math.Sinh(2*phi) * phi1

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

// #endregion

// #region eval-big

// EvalBig computes A(r) on the precision context. The blended variant is
// reproduced term by term so high-precision redshifts stay consistent with
// the float evaluation path; the transition radius itself is the float
// solution, which suffices since the blend weight varies on the scale of
// width·r*.
func (m *SSZ) EvalBig(c *precision.Context, r float64) *big.Float {
	if m.blend {
		return m.evalBigBlended(c, r)
	}

	one := c.FromInt(1)
	u := c.Div(
		c.Mul(c.FromFloat64(G), c.FromFloat64(m.mass)),
		c.Mul(c.FromFloat64(r), c.Mul(c.FromFloat64(C), c.FromFloat64(C))),
	)

	var s *big.Float
	switch m.cal {
	case Calibration1PN:
		s = c.Mul(c.FromInt(2), u)
	default:
		s = c.Mul(c.Mul(c.FromInt(2), u), c.Add(one, c.Div(u, c.FromInt(3))))
	}

	phi := c.Sqrt(s)
	ch := c.Cosh(phi)
	return c.Div(one, c.Mul(ch, ch))
}

func (m *SSZ) evalBigBlended(c *precision.Context, r float64) *big.Float {
	one := c.FromInt(1)
	rb := c.FromFloat64(r)
	rsb := c.FromFloat64(m.rs)

	// segment density
	x := c.Div(c.Mul(c.FromFloat64(GoldenRatio), rb), rsb)
	var xi *big.Float
	switch m.sat {
	case SaturationRational:
		xi = c.Div(x, c.Add(one, x))
	default:
		xi = c.Sub(one, c.Exp(c.Neg(x)))
	}
	d := c.Div(one, c.Add(one, xi))
	inner := c.Mul(d, d)

	// far-field series in x = r_s/2r
	xe := c.Div(rsb, c.Mul(c.FromInt(2), rb))
	outer := c.FromFloat64(epsilonCoefficients[0])
	xn := one
	for n := 1; n <= PhiSeriesOrder; n++ {
		xn = c.Mul(xn, xe)
		outer = c.Add(outer, c.Mul(c.FromFloat64(epsilonCoefficients[n]), xn))
	}

	// tanh transition weight
	arg := c.Div(c.Sub(rb, c.FromFloat64(m.rStar)), c.FromFloat64(m.width*m.rStar))
	half := c.FromFloat64(0.5)
	h := c.Mul(half, c.Sub(one, c.Tanh(arg)))

	return ASafeBig(c, c.Add(c.Mul(h, inner), c.Mul(c.Sub(one, h), outer)))
}

// #endregion
