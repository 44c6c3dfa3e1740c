package geodesic

// #region imports
import (
	"context"
	"fmt"
	"math"

	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
)

// #endregion

// #region turning-point

// impactParameter returns b = r0/√A(r0) for a null geodesic whose closest
// approach is r0.
func impactParameter(m metric.Model, r0 float64) (float64, error) {
	p, err := m.Evaluate(r0)
	if err != nil {
		return 0, err
	}
	if p.A <= 0 {
		return 0, fmt.Errorf("geodesic: no turning point, A(%g) = %g", r0, p.A)
	}
	return r0 / math.Sqrt(p.A), nil
}

// rootTerm evaluates 1 - b²A(r)/r², the radial potential under the square
// root of both observables. It vanishes linearly at the turning point.
func rootTerm(m metric.Model, b2, r float64) (float64, float64) {
	p, err := m.Evaluate(r)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return 1 - b2*p.A/(r*r), p.A
}

// #endregion

// #region time-delay

// TimeDelay returns the gravitational travel-time excess, in seconds, for
// light passing the central body with closest approach rPeri [m] on its way
// to an observer at rObs [m], measured against the straight flat-space path.
//
// The radial integral is taken in the substitution r = rPeri·cosh(u), which
// removes the turning-point singularity: in flat space the transformed
// excess integrand is identically zero.
func TimeDelay(ctx context.Context, m metric.Model, rPeri, rObs float64, q *Integrator) (Result, error) {
	if rPeri <= 0 || rObs <= rPeri {
		return Result{}, fmt.Errorf("geodesic: need 0 < rPeri < rObs, got %g, %g", rPeri, rObs)
	}
	b, err := impactParameter(m, rPeri)
	if err != nil {
		return Result{}, err
	}
	b2 := b * b

	f := func(u float64) float64 {
		sh, ch := math.Sinh(u), math.Cosh(u)
		r := rPeri * ch
		h, a := rootTerm(m, b2, r)
		if h <= 0 || math.IsNaN(h) {
			return math.NaN()
		}
		return rPeri * (sh/(a*math.Sqrt(h)) - ch) / metric.C
	}

	uMax := math.Acosh(rObs / rPeri)
	if q == nil {
		q = &Integrator{}
	}
	return q.Integrate(ctx, f, 0, uMax)
}

// #endregion

// #region deflection

// deflectionCutoff bounds the outer radius of the bending integral as a
// multiple of the closest approach; the neglected tail is O(1/cutoff).
const deflectionCutoff = 1e12

// Deflection returns the light bending angle, in radians, for a null
// geodesic with closest approach rPeri [m]: the accumulated azimuth minus π.
func Deflection(ctx context.Context, m metric.Model, rPeri float64, q *Integrator) (Result, error) {
	if rPeri <= 0 {
		return Result{}, fmt.Errorf("geodesic: non-positive perihelion %g", rPeri)
	}
	b, err := impactParameter(m, rPeri)
	if err != nil {
		return Result{}, err
	}
	b2 := b * b

	f := func(u float64) float64 {
		sh, ch := math.Sinh(u), math.Cosh(u)
		r := rPeri * ch
		h, _ := rootTerm(m, b2, r)
		if h <= 0 || math.IsNaN(h) {
			return math.NaN()
		}
		return b * sh / (rPeri * ch * ch * math.Sqrt(h))
	}

	uMax := math.Acosh(deflectionCutoff)
	if q == nil {
		q = &Integrator{}
	}
	res, err := q.Integrate(ctx, f, 0, uMax)
	if err != nil {
		return res, err
	}
	res.Value = 2*res.Value - math.Pi
	res.EstimatedError *= 2
	return res, nil
}

// #endregion
