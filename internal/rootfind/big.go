package rootfind

// #region imports
import (
	"math/big"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #endregion

// #region big-certificate

// BigCertificate is the arbitrary-precision counterpart of Certificate.
type BigCertificate struct {
	Solution      *big.Float
	Iterations    int
	FinalResidual *big.Float
	Converged     bool
}

// #endregion

// #region invert-big

// InvertBig solves f(x) = 0 by damped Newton-Raphson on the given precision
// context. tol is interpreted against the same criteria as Invert:
// |f(x)| < tol or |step/x| < tol. The iteration sequence is fully determined
// by the context's digit budget and the inputs.
func InvertBig(c *precision.Context, f, df func(*big.Float) *big.Float, x0 *big.Float, tol *big.Float, maxIter int) BigCertificate {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	x := new(big.Float).SetPrec(c.Prec()).Set(x0)
	fx := f(x)
	cert := BigCertificate{
		Solution:      new(big.Float).Set(x),
		FinalResidual: new(big.Float).Abs(fx),
	}

	for i := 1; i <= maxIter; i++ {
		cert.Iterations = i

		if new(big.Float).Abs(fx).Cmp(tol) < 0 {
			cert.Solution.Set(x)
			cert.FinalResidual.Abs(fx)
			cert.Converged = true
			return cert
		}

		d := df(x)
		if d.Sign() == 0 || d.IsInf() {
			break
		}

		step := c.Neg(c.Div(fx, d))
		if x.Sign() != 0 {
			absX := new(big.Float).Abs(x)
			for new(big.Float).Abs(step).Cmp(absX) > 0 {
				step = c.Div(step, big.NewFloat(2))
			}
		}

		x = c.Add(x, step)
		fx = f(x)
		cert.Solution.Set(x)
		cert.FinalResidual.Abs(fx)

		if fx.IsInf() {
			break
		}
		if x.Sign() != 0 {
			rel := c.Div(new(big.Float).Abs(step), new(big.Float).Abs(x))
			if rel.Cmp(tol) < 0 {
				cert.Converged = true
				return cert
			}
		}
	}

	cert.Converged = cert.FinalResidual.Cmp(tol) < 0
	return cert
}

// #endregion
