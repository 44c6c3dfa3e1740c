package metric

// #region imports
import (
	"math"
	"math/big"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #endregion

// #region phi-series

// epsilonCoefficients are the post-Newtonian expansion coefficients of the
// far-field series A_φ(r) = Σ ε_n (r_s/2r)^n. The n=3 coefficient matches
// the general-relativistic value -24/5; the higher orders follow the
// golden-ratio recursion c_{n+2} = (c_{n+1} + c_n)/φ with ε_n = c_n·φⁿ.
var epsilonCoefficients = [7]float64{
	1.0,
	-3.236,
	5.236,
	-4.800,
	3.672,
	-4.094,
	1.847,
}

// PhiSeriesOrder is the default truncation order of the far-field series.
const PhiSeriesOrder = 6

// APhiSeries evaluates the far-field metric coefficient as a truncated
// series in x = r_s/2r up to the given order (0..6).
func APhiSeries(r, rs float64, order int) float64 {
	if order < 0 {
		order = 0
	}
	if order > PhiSeriesOrder {
		order = PhiSeriesOrder
	}
	x := rs / (2 * r)
	a := epsilonCoefficients[0]
	xn := 1.0
	for n := 1; n <= order; n++ {
		xn *= x
		a += epsilonCoefficients[n] * xn
	}
	return a
}

// #endregion

// #region interior

// AXi is the segment-density inner metric coefficient, A_Ξ(r) = D_SSZ(r)².
// It is regular at the origin: A_Ξ(0) = 1.
func AXi(sat Saturation, r, rs float64) float64 {
	d := DSSZ(sat, r, rs)
	return d * d
}

// #endregion

// #region blend

// DefaultBlendWidth scales the tanh transition width as a fraction of the
// intersection radius.
const DefaultBlendWidth = 0.1

// ABlended joins the interior segment-density coefficient with the far-field
// series through a tanh weight centred on the transition radius rStar:
//
//	h(r) = ½·(1 - tanh((r - r*) / (w·r*)))
//	A(r) = h·A_Ξ(r) + (1-h)·A_φ(r)
//
// The blend is smooth but has no tractable closed-form derivative chain, so
// callers that need derivatives difference it numerically.
func ABlended(sat Saturation, r, rs, rStar, width float64) float64 {
	inner := AXi(sat, r, rs)
	outer := APhiSeries(r, rs, PhiSeriesOrder)
	h := 0.5 * (1 - math.Tanh((r-rStar)/(width*rStar)))
	return h*inner + (1-h)*outer
}

// Softplus floor parameters. The sharpness β is large enough that the floor
// contributes e^{-β·A}/β ≈ 4e-46 at A = 1, far below float resolution, so
// the far field is untouched.
const (
	safeFloorEps  = 1e-10
	safeFloorBeta = 100.0
)

// ASafe applies a softplus floor so the blended coefficient never reaches
// zero even where the truncated series dips negative:
//
//	A_safe = ε + (1/β)·log(1 + exp(β·(A - ε)))
func ASafe(a float64) float64 {
	z := safeFloorBeta * (a - safeFloorEps)
	if z > 500 {
		// softplus saturates to identity, avoid exp overflow
		return a
	}
	return safeFloorEps + math.Log1p(math.Exp(z))/safeFloorBeta
}

// ASafeBig is the softplus floor on the precision context, kept term for
// term with ASafe so the two evaluation paths agree.
func ASafeBig(c *precision.Context, a *big.Float) *big.Float {
	eps := c.FromFloat64(safeFloorEps)
	beta := c.FromFloat64(safeFloorBeta)
	z := c.Mul(beta, c.Sub(a, eps))
	if z.Cmp(c.FromInt(500)) > 0 {
		return a
	}
	one := c.FromInt(1)
	return c.Add(eps, c.Div(c.Log(c.Add(one, c.Exp(z))), beta))
}

// #endregion
