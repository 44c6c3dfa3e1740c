// Package precision implements the arbitrary-precision scalar kernel used by
// the metric models and the root finder. All arithmetic goes through an
// immutable Context carrying a significant-digit budget, so that two runs with
// the same budget and inputs produce bit-identical results regardless of the
// host's floating-point behaviour.
package precision

// #region imports
import (
	"fmt"
	"math"
	"math/big"
)

// #endregion

// #region limits

const (
	// MinDigits is the smallest accepted significant-digit budget.
	MinDigits = 1
	// MaxDigits is the practical ceiling for the digit budget.
	MaxDigits = 1000

	// guardBits are extra mantissa bits carried through intermediate steps so
	// that the final rounding to the requested budget is correct.
	guardBits = 32
)

// #endregion

// #region errors

// ConfigError reports an invalid precision configuration. It is fatal at run
// start and is never produced after a Context has been constructed.
type ConfigError struct {
	Digits int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("precision: digit budget %d outside [%d, %d]", e.Digits, MinDigits, MaxDigits)
}

// #endregion

// #region context

// Context is an immutable arbitrary-precision arithmetic context. It is safe
// for concurrent use: no method mutates the context, and every operation
// allocates its result.
type Context struct {
	digits int
	prec   uint // mantissa bits of rounded results
	work   uint // internal mantissa bits (prec + guard)

	ln2 *big.Float // cached ln 2 at working precision
}

// New creates a Context with the given significant-digit budget.
func New(digits int) (*Context, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, &ConfigError{Digits: digits}
	}
	// bits per decimal digit: log2(10) ≈ 3.3219...
	prec := uint(math.Ceil(float64(digits)*math.Log2(10))) + 4
	c := &Context{
		digits: digits,
		prec:   prec,
		work:   prec + guardBits,
	}
	c.ln2 = c.computeLn2()
	return c, nil
}

// Digits returns the configured significant-digit budget.
func (c *Context) Digits() int { return c.digits }

// Prec returns the mantissa precision, in bits, of rounded results.
func (c *Context) Prec() uint { return c.prec }

// #endregion

// #region constructors

// new allocates a working-precision float.
func (c *Context) new() *big.Float {
	return new(big.Float).SetPrec(c.work)
}

// round rounds x to the context precision and returns it.
func (c *Context) round(x *big.Float) *big.Float {
	return x.SetPrec(c.prec)
}

// FromFloat64 converts v into a context-precision value.
func (c *Context) FromFloat64(v float64) *big.Float {
	return c.round(c.new().SetFloat64(v))
}

// FromInt converts v into a context-precision value.
func (c *Context) FromInt(v int64) *big.Float {
	return c.round(c.new().SetInt64(v))
}

// Parse reads a decimal literal at context precision.
func (c *Context) Parse(s string) (*big.Float, error) {
	x, _, err := big.ParseFloat(s, 10, c.work, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	return c.round(x), nil
}

// #endregion

// #region arithmetic

// Add returns a+b at context precision.
func (c *Context) Add(a, b *big.Float) *big.Float {
	return c.round(c.new().Add(a, b))
}

// Sub returns a-b at context precision.
func (c *Context) Sub(a, b *big.Float) *big.Float {
	return c.round(c.new().Sub(a, b))
}

// Mul returns a*b at context precision.
func (c *Context) Mul(a, b *big.Float) *big.Float {
	return c.round(c.new().Mul(a, b))
}

// Div returns a/b at context precision. Division of a finite nonzero value by
// zero yields an infinity, matching big.Float semantics.
func (c *Context) Div(a, b *big.Float) *big.Float {
	return c.round(c.new().Quo(a, b))
}

// Neg returns -a at context precision.
func (c *Context) Neg(a *big.Float) *big.Float {
	return c.round(c.new().Neg(a))
}

// Sqrt returns the square root of a at context precision.
// a must be non-negative.
func (c *Context) Sqrt(a *big.Float) *big.Float {
	return c.round(c.new().Sqrt(a))
}

// #endregion
