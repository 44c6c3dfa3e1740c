// Package rootfind implements damped Newton-Raphson inversion with an
// explicit convergence certificate. Non-convergence is reported as data on
// the certificate, never as an error: callers must check Converged before
// trusting the solution.
package rootfind

// #region imports
import (
	"math"
)

// #endregion

// #region defaults

const (
	// DefaultTol is the default convergence tolerance.
	DefaultTol = 1e-12
	// DefaultMaxIter bounds the Newton iteration count.
	DefaultMaxIter = 200
)

// #endregion

// #region certificate

// Certificate records the outcome of a Newton inversion. If Converged is
// true, FinalResidual is below the tolerance the caller supplied; otherwise
// Solution holds the last iterate and must be treated as unreliable.
type Certificate struct {
	Target        float64 // the value the caller was solving toward, for reporting
	Solution      float64
	Iterations    int
	FinalResidual float64
	Converged     bool
}

// #endregion

// #region invert

// Invert solves f(x) = 0 by Newton-Raphson starting from x0.
//
// Each step is damped: the raw step -f(x)/f'(x) is halved until its magnitude
// does not exceed |x|, which keeps the iteration finite on deliberately steep
// regions. Convergence is declared when |f(x)| < tol or |step/x| < tol.
func Invert(f, df func(float64) float64, x0, tol float64, maxIter int) Certificate {
	if tol <= 0 {
		tol = DefaultTol
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	x := x0
	fx := f(x)
	cert := Certificate{Solution: x, FinalResidual: math.Abs(fx)}

	for i := 1; i <= maxIter; i++ {
		cert.Iterations = i

		if math.Abs(fx) < tol {
			cert.Solution = x
			cert.FinalResidual = math.Abs(fx)
			cert.Converged = true
			return cert
		}

		d := df(x)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}

		step := -fx / d
		if math.IsNaN(step) || math.IsInf(step, 0) {
			break
		}
		// Damping: never step farther than the current estimate's magnitude.
		if x != 0 {
			for math.Abs(step) > math.Abs(x) {
				step /= 2
			}
		}

		x += step
		fx = f(x)
		cert.Solution = x
		cert.FinalResidual = math.Abs(fx)

		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			break
		}
		if x != 0 && math.Abs(step/x) < tol {
			cert.Converged = true
			return cert
		}
	}

	cert.Converged = cert.FinalResidual < tol
	return cert
}

// #endregion

// #region bracketed

// InvertBracketed runs Invert from the midpoint of [lo, hi] and, when Newton
// wanders out or fails, falls back to bisection on the bracket. The bracket
// must contain a sign change of f.
func InvertBracketed(f, df func(float64) float64, lo, hi, tol float64, maxIter int) Certificate {
	if tol <= 0 {
		tol = DefaultTol
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	cert := Invert(f, df, 0.5*(lo+hi), tol, maxIter)
	if cert.Converged && cert.Solution >= lo && cert.Solution <= hi {
		return cert
	}

	flo := f(lo)
	iters := cert.Iterations
	a, b := lo, hi
	for i := 0; i < maxIter; i++ {
		iters++
		mid := 0.5 * (a + b)
		fm := f(mid)
		if math.Abs(fm) < tol || (b-a)/math.Max(math.Abs(mid), 1) < tol {
			return Certificate{
				Solution:      mid,
				Iterations:    iters,
				FinalResidual: math.Abs(fm),
				Converged:     true,
			}
		}
		if (flo < 0) == (fm < 0) {
			a, flo = mid, fm
		} else {
			b = mid
		}
	}

	mid := 0.5 * (a + b)
	return Certificate{
		Solution:      mid,
		Iterations:    iters,
		FinalResidual: math.Abs(f(mid)),
		Converged:     false,
	}
}

// #endregion
