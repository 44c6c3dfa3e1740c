package metric

// #region imports
import (
	"fmt"
	"math"

	"github.com/sszproject/ssz-validation/go-engine/internal/rootfind"
)

// #endregion

// #region segment-density

// Xi returns the segment density Ξ(r) for a body of Schwarzschild radius rs
// under the chosen saturating function. The argument of the saturation is
// x = φ·r/r_s with φ the golden ratio, so Ξ → 0 as r → 0 and Ξ → its
// saturated limit as r grows.
func Xi(sat Saturation, r, rs float64) float64 {
	x := GoldenRatio * r / rs
	switch sat {
	case SaturationRational:
		return x / (1 + x)
	default:
		return 1 - math.Exp(-x)
	}
}

// XiPrime returns dΞ/dr.
func XiPrime(sat Saturation, r, rs float64) float64 {
	x := GoldenRatio * r / rs
	dxdr := GoldenRatio / rs
	switch sat {
	case SaturationRational:
		d := 1 + x
		return dxdr / (d * d)
	default:
		return dxdr * math.Exp(-x)
	}
}

// #endregion

// #region dilation

// DSSZ returns the segmented-spacetime time-dilation factor 1/(1+Ξ).
func DSSZ(sat Saturation, r, rs float64) float64 {
	return 1 / (1 + Xi(sat, r, rs))
}

// DGR returns the Schwarzschild time-dilation factor √(1 - r_s/r),
// defined for r > r_s.
func DGR(r, rs float64) float64 {
	return math.Sqrt(1 - rs/r)
}

// #endregion

// #region intersection

// FindIntersection locates the radius r* on [1.1·r_s, 100·r_s] where the
// segmented and Schwarzschild dilation factors agree, D_SSZ(r*) = D_GR(r*).
// Near the horizon D_GR → 0 while D_SSZ stays bounded away from zero, and at
// large r D_GR → 1 while Ξ saturates above zero, so the difference changes
// sign on the bracket for both saturating functions.
func FindIntersection(sat Saturation, rs float64) (float64, rootfind.Certificate, error) {
	if rs <= 0 {
		return 0, rootfind.Certificate{}, fmt.Errorf("metric: non-positive gravitational radius %g", rs)
	}

	f := func(r float64) float64 {
		return DSSZ(sat, r, rs) - DGR(r, rs)
	}
	df := func(r float64) float64 {
		xi := Xi(sat, r, rs)
		dSSZ := -XiPrime(sat, r, rs) / ((1 + xi) * (1 + xi))
		dGR := rs / (2 * r * r * DGR(r, rs))
		return dSSZ - dGR
	}

	cert := rootfind.InvertBracketed(f, df, 1.1*rs, 100*rs, rootfind.DefaultTol, rootfind.DefaultMaxIter)
	if !cert.Converged {
		return cert.Solution, cert, fmt.Errorf("metric: dilation intersection did not converge after %d iterations", cert.Iterations)
	}
	return cert.Solution, cert, nil
}

// #endregion
