package curvature

import (
	"errors"
	"math"
	"testing"

	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
)

// #region helpers

func mustSchwarzschild(t *testing.T) *metric.Schwarzschild {
	t.Helper()
	m, err := metric.NewSchwarzschild(metric.MSun)
	if err != nil {
		t.Fatalf("NewSchwarzschild: %v", err)
	}
	return m
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

// fdOnly wraps a model and strips its analytic derivatives so the numerical
// fallback path is exercised against a known closed form.
type fdOnly struct {
	metric.Model
}

func (m fdOnly) Evaluate(r float64) (metric.Point, error) {
	p, err := m.Model.Evaluate(r)
	if err != nil {
		return p, err
	}
	p.APrime, p.APrime2, p.BPrime = 0, 0, 0
	p.ClosedForm = false
	return p, nil
}

// brokenModel yields a non-finite coefficient at every radius.
type brokenModel struct {
	metric.Model
}

func (m brokenModel) Evaluate(r float64) (metric.Point, error) {
	p, err := m.Model.Evaluate(r)
	if err != nil {
		return p, err
	}
	p.A = math.NaN()
	return p, nil
}

// #endregion

// #region vacuum

func TestSchwarzschildIsVacuum(t *testing.T) {
	ref := mustSchwarzschild(t)
	r := 10 * ref.GravRadius()

	ten, err := Derive(ref, r, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !ten.ClosedForm {
		t.Fatal("expected closed-form derivation")
	}

	for _, c := range []struct {
		name string
		v    float64
	}{
		{"Ricci_tt", ten.RicciTT},
		{"Ricci_rr", ten.RicciRR},
		{"Ricci_thth", ten.RicciThTh},
		{"Ricci scalar", ten.RicciScalar},
		{"Einstein_tt", ten.EinsteinTT},
		{"Einstein_rr", ten.EinsteinRR},
		{"Einstein_thth", ten.EinsteinThTh},
	} {
		if math.Abs(c.v) > 1e-18 {
			t.Errorf("%s = %g, want 0 for the vacuum solution", c.name, c.v)
		}
	}
}

func TestSchwarzschildKretschmann(t *testing.T) {
	ref := mustSchwarzschild(t)
	rs := ref.GravRadius()

	for _, mult := range []float64{2, 10, 100, 1e4} {
		r := mult * rs
		ten, err := Derive(ref, r, Options{})
		if err != nil {
			t.Fatalf("Derive at %g r_s: %v", mult, err)
		}
		want := 12 * rs * rs / math.Pow(r, 6)
		if e := relErr(ten.Kretschmann, want); e > 1e-10 {
			t.Errorf("at %g r_s: K = %g, want 12 r_s²/r⁶ = %g (rel %g)", mult, ten.Kretschmann, want, e)
		}
	}
}

// #endregion

// #region christoffel

func TestChristoffelComponents(t *testing.T) {
	ref := mustSchwarzschild(t)
	rs := ref.GravRadius()
	r := 4 * rs

	ten, err := Derive(ref, r, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	a := 1 - rs/r
	a1 := rs / (r * r)
	b := 1 / a

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"t_tr", ten.Gamma.TTR, a1 / (2 * a)},
		{"r_tt", ten.Gamma.RTT, a1 / (2 * b)},
		{"r_thth", ten.Gamma.RThTh, -r / b},
		{"th_rth", ten.Gamma.ThRTh, 1 / r},
		{"ph_rph", ten.Gamma.PhRPh, 1 / r},
	}
	for _, c := range checks {
		if e := relErr(c.got, c.want); e > 1e-12 {
			t.Errorf("Γ %s = %g, want %g", c.name, c.got, c.want)
		}
	}
	// Γ^r_{rr} = B'/2B with B' = -A'/A²
	wantRRR := (-a1 / (a * a)) / (2 / a)
	if e := relErr(ten.Gamma.RRR, wantRRR); e > 1e-12 {
		t.Errorf("Γ r_rr = %g, want %g", ten.Gamma.RRR, wantRRR)
	}
}

// #endregion

// #region finite-difference

// compactBody builds a reference model whose gravitational radius is 0.1 m,
// so radii of interest sit near the 1e-3 m step floor where the difference
// stencil is well conditioned.
func compactBody(t *testing.T) *metric.Schwarzschild {
	t.Helper()
	mass := 0.1 * metric.C * metric.C / (2 * metric.G)
	m, err := metric.NewSchwarzschild(mass)
	if err != nil {
		t.Fatalf("NewSchwarzschild: %v", err)
	}
	return m
}

func TestNumericalFallbackMatchesClosedForm(t *testing.T) {
	ref := compactBody(t)
	rs := ref.GravRadius()
	r := 10 * rs
	want := 12 * rs * rs / math.Pow(r, 6)

	t.Run("default_tolerance", func(t *testing.T) {
		ten, err := Derive(fdOnly{ref}, r, Options{})
		if err != nil {
			t.Fatalf("Derive: %v", err)
		}
		if ten.ClosedForm {
			t.Fatal("wrapper still reported closed form")
		}
		// float64 second differences cannot agree to 1e-10; the estimates
		// are still accurate but carry the indeterminate marker
		if !ten.Indeterminate {
			t.Error("refinement reported convergence at the default tolerance")
		}
		if e := relErr(ten.Kretschmann, want); e > 1e-4 {
			t.Errorf("numerical K = %g, want %g (rel %g, refinements %d)",
				ten.Kretschmann, want, e, ten.FDRefinements)
		}
	})

	t.Run("attainable_tolerance", func(t *testing.T) {
		ten, err := Derive(fdOnly{ref}, r, Options{FDTol: 1e-5})
		if err != nil {
			t.Fatalf("Derive: %v", err)
		}
		if ten.Indeterminate {
			t.Error("refinement did not converge at 1e-5")
		}
		if e := relErr(ten.Kretschmann, want); e > 1e-4 {
			t.Errorf("numerical K = %g, want %g (rel %g)", ten.Kretschmann, want, e)
		}
	})
}

func TestBlendedModelUsesFallback(t *testing.T) {
	m, err := metric.NewSSZ(metric.MSun, metric.SSZOptions{InteriorBlend: true})
	if err != nil {
		t.Fatalf("NewSSZ: %v", err)
	}

	ten, err := Derive(m, 5*m.GravRadius(), Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if ten.ClosedForm {
		t.Error("blended model should not report closed-form derivatives")
	}
	if ten.Kretschmann <= 0 || math.IsInf(ten.Kretschmann, 0) {
		t.Errorf("Kretschmann = %g, want finite positive", ten.Kretschmann)
	}
	// at stellar radii the stencil is noise-limited well before 1e-10
	if !ten.Indeterminate {
		t.Error("noise-limited refinement not marked indeterminate")
	}
}

// #endregion

// #region indeterminate

func TestNonFiniteCoefficientIsEvalError(t *testing.T) {
	ref := mustSchwarzschild(t)

	_, err := Derive(brokenModel{ref}, 10*ref.GravRadius(), Options{})
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("err = %v, want *EvalError", err)
	}
	if evalErr.Model != metric.ModelSchwarzschild {
		t.Errorf("EvalError model = %s", evalErr.Model)
	}
}

// #endregion
