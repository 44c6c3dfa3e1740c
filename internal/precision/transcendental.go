package precision

// #region imports
import (
	"math"
	"math/big"
)

// #endregion

// #region ln2

// computeLn2 evaluates ln 2 = 2·atanh(1/3) by its series at working precision.
// The series gains roughly 3 bits per term, so the loop is bounded even at the
// maximum digit budget.
func (c *Context) computeLn2() *big.Float {
	one := c.new().SetInt64(1)
	third := c.new().Quo(one, c.new().SetInt64(3))
	ninth := c.new().Mul(third, third)

	sum := c.new().Set(third)
	pow := c.new().Set(third)
	term := c.new()

	cutoff := -int(c.work) - 8
	for n := int64(1); ; n++ {
		pow.Mul(pow, ninth)
		term.Quo(pow, c.new().SetInt64(2*n+1))
		if term.Sign() == 0 || term.MantExp(nil) < cutoff {
			break
		}
		sum.Add(sum, term)
	}
	return sum.Mul(sum, c.new().SetInt64(2))
}

// #endregion

// #region exp

// Exp returns e**x at context precision.
func (c *Context) Exp(x *big.Float) *big.Float {
	return c.round(c.expWork(x))
}

// expWork computes e**x at working precision via range reduction
// x = k·ln2 + r with |r| ≤ ln2/2, followed by the Taylor series for e**r
// and an exact scaling by 2**k.
func (c *Context) expWork(x *big.Float) *big.Float {
	if x.Sign() == 0 {
		return c.new().SetInt64(1)
	}

	q := c.new().Quo(x, c.ln2)
	qf, _ := q.Float64()
	k := int(math.Round(qf))

	// r = x - k·ln2
	r := c.new().Mul(c.ln2, c.new().SetInt64(int64(k)))
	r.Sub(x, r)

	sum := c.new().SetInt64(1)
	term := c.new().SetInt64(1)
	cutoff := -int(c.work) - 8
	for n := int64(1); ; n++ {
		term.Mul(term, r)
		term.Quo(term, c.new().SetInt64(n))
		if term.Sign() == 0 || term.MantExp(nil) < sum.MantExp(nil)+cutoff {
			break
		}
		sum.Add(sum, term)
	}
	return sum.SetMantExp(sum, k)
}

// #endregion

// #region log

// Log returns the natural logarithm of x at context precision.
// x must be positive; Log panics otherwise, matching big.Float's treatment of
// undefined operations.
func (c *Context) Log(x *big.Float) *big.Float {
	return c.round(c.logWork(x))
}

// logWork computes ln x by Newton iteration y ← y + x·e**(-y) - 1, seeded from
// a float64 estimate. Each step roughly doubles the correct digits.
func (c *Context) logWork(x *big.Float) *big.Float {
	if x.Sign() <= 0 {
		panic("precision: Log of non-positive value")
	}

	// Seed: ln x = ln m + e·ln2 with x = m·2**e, m ∈ [0.5, 1).
	mant := c.new()
	exp := x.MantExp(mant)
	mf, _ := mant.Float64()
	y := c.new().SetFloat64(math.Log(mf))
	y.Add(y, c.new().Mul(c.ln2, c.new().SetInt64(int64(exp))))

	u := c.new()
	negY := c.new()
	cutoff := -int(c.work) + 4
	for i := 0; i < 64; i++ {
		negY.Neg(y)
		u.Mul(x, c.expWork(negY))
		u.Sub(u, c.new().SetInt64(1))
		y.Add(y, u)
		if u.Sign() == 0 || u.MantExp(nil) < cutoff {
			break
		}
	}
	return y
}

// #endregion

// #region hyperbolic

// Cosh returns cosh x at context precision.
func (c *Context) Cosh(x *big.Float) *big.Float {
	e := c.expWork(x)
	inv := c.new().Quo(c.new().SetInt64(1), e)
	s := c.new().Add(e, inv)
	return c.round(s.Quo(s, c.new().SetInt64(2)))
}

// Sinh returns sinh x at context precision.
func (c *Context) Sinh(x *big.Float) *big.Float {
	return c.round(c.sinhWork(x))
}

// sinhWork uses the exponential form away from zero and the odd Taylor series
// for small arguments, where the exponential form cancels catastrophically.
func (c *Context) sinhWork(x *big.Float) *big.Float {
	half := big.NewFloat(0.5)
	abs := c.new().Abs(x)
	if abs.Cmp(half) >= 0 {
		e := c.expWork(x)
		inv := c.new().Quo(c.new().SetInt64(1), e)
		s := c.new().Sub(e, inv)
		return s.Quo(s, c.new().SetInt64(2))
	}

	// sinh x = Σ x^(2n+1)/(2n+1)!
	x2 := c.new().Mul(x, x)
	sum := c.new().Set(x)
	term := c.new().Set(x)
	cutoff := -int(c.work) - 8
	for n := int64(1); ; n++ {
		term.Mul(term, x2)
		term.Quo(term, c.new().SetInt64(2*n*(2*n+1)))
		if term.Sign() == 0 || term.MantExp(nil) < sum.MantExp(nil)+cutoff {
			break
		}
		sum.Add(sum, term)
	}
	return sum
}

// Tanh returns tanh x at context precision.
func (c *Context) Tanh(x *big.Float) *big.Float {
	e := c.expWork(x)
	inv := c.new().Quo(c.new().SetInt64(1), e)
	num := c.new().Sub(e, inv)
	den := c.new().Add(e, inv)
	return c.round(num.Quo(num, den))
}

// #endregion
