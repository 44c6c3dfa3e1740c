package metric

// #region imports
import (
	"fmt"
	"math"

	"github.com/sszproject/ssz-validation/go-engine/internal/rootfind"
)

// #endregion

// #region mass-correction

// Δ(M) parameters of the empirical mass correction
// Δ = a·exp(-α·r_s) + b, in percent.
const (
	deltaMA     = 98.01
	deltaMAlpha = 2.7177e4
	deltaMB     = 1.96
)

// DeltaM returns the percent mass correction Δ(M) for a body of mass [kg].
// The exponential term only contributes for bodies with sub-millimetre
// gravitational radii; for stellar masses Δ ≈ 1.96%.
func DeltaM(mass float64) float64 {
	rs := SchwarzschildRadius(mass)
	return deltaMA*math.Exp(-deltaMAlpha*rs) + deltaMB
}

// CorrectedRadius returns the natural boundary radius
//
//	r_φ = (φ/2)·r_s·(1 + Δ(M)/100)
//
// which is nonlinear in the mass through Δ.
func CorrectedRadius(mass float64) float64 {
	rs := SchwarzschildRadius(mass)
	return (GoldenRatio / 2) * rs * (1 + DeltaM(mass)/100)
}

// #endregion

// #region inversion

// MassFromCorrectedRadius inverts CorrectedRadius for the mass, starting a
// damped Newton iteration from the Δ-free estimate. The returned certificate
// records iteration count and final residual.
func MassFromCorrectedRadius(rPhi float64, tol float64, maxIter int) (float64, rootfind.Certificate, error) {
	if rPhi <= 0 || math.IsNaN(rPhi) || math.IsInf(rPhi, 0) {
		return 0, rootfind.Certificate{}, fmt.Errorf("metric: invalid corrected radius %g", rPhi)
	}
	if tol <= 0 {
		tol = rootfind.DefaultTol
	}
	if maxIter <= 0 {
		maxIter = rootfind.DefaultMaxIter
	}

	const drsdm = 2 * G / (C * C)

	// The residual is measured relative to the target radius so the
	// tolerance is scale free across sub-millimetre and stellar bodies.
	f := func(m float64) float64 {
		return CorrectedRadius(m)/rPhi - 1
	}
	df := func(m float64) float64 {
		rs := drsdm * m
		delta := deltaMA*math.Exp(-deltaMAlpha*rs) + deltaMB
		ddelta := -deltaMAlpha * deltaMA * math.Exp(-deltaMAlpha*rs) * drsdm
		return (GoldenRatio / 2) * (drsdm*(1+delta/100) + rs*ddelta/100) / rPhi
	}

	// seed from the saturated correction Δ ≈ deltaMB
	m0 := rPhi / ((GoldenRatio / 2) * drsdm * (1 + deltaMB/100))

	cert := rootfind.Invert(f, df, m0, tol, maxIter)
	cert.Target = rPhi
	if !cert.Converged {
		return cert.Solution, cert, fmt.Errorf("metric: mass inversion did not converge after %d iterations", cert.Iterations)
	}
	return cert.Solution, cert, nil
}

// #endregion
