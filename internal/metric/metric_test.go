package metric

import (
	"errors"
	"math"
	"testing"

	"github.com/sszproject/ssz-validation/go-engine/internal/precision"
)

// #region helpers

func mustSSZ(t *testing.T, mass float64, opts SSZOptions) *SSZ {
	t.Helper()
	m, err := NewSSZ(mass, opts)
	if err != nil {
		t.Fatalf("NewSSZ: %v", err)
	}
	return m
}

func mustSchwarzschild(t *testing.T, mass float64) *Schwarzschild {
	t.Helper()
	m, err := NewSchwarzschild(mass)
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

// #endregion

// #region constants

func TestSchwarzschildRadiusSun(t *testing.T) {
	rs := SchwarzschildRadius(MSun)
	if rs < 2952 || rs > 2955 {
		t.Fatalf("solar Schwarzschild radius = %g m, want ~2953 m", rs)
	}
}

// #endregion

// #region weak-field

func TestSSZMatchesReferenceInWeakField(t *testing.T) {
	ssz := mustSSZ(t, MSun, SSZOptions{Calibration: Calibration2PN})
	ref := mustSchwarzschild(t, MSun)

	for _, mult := range []float64{1e6, 1e8, 1e9} {
		r := mult * ssz.GravRadius()
		ps, err := ssz.Evaluate(r)
		if err != nil {
			t.Fatalf("ssz at %g r_s: %v", mult, err)
		}
		pg, err := ref.Evaluate(r)
		if err != nil {
			t.Fatalf("reference at %g r_s: %v", mult, err)
		}
		// the 2PN calibration agrees with 1 - r_s/r through O(U), with a
		// residual of order U²
		u := ssz.GravRadius() / (2 * r)
		if diff := math.Abs(ps.A - pg.A); diff > 10*u*u {
			t.Errorf("at %g r_s: |A_ssz - A_ref| = %g, want O(U²) = %g", mult, diff, u*u)
		}
	}
}

// #endregion

// #region evaluate

func TestEvaluateRejectsBadRadius(t *testing.T) {
	ssz := mustSSZ(t, MSun, SSZOptions{})
	ref := mustSchwarzschild(t, MSun)

	for _, r := range []float64{0, -1, math.NaN()} {
		if _, err := ssz.Evaluate(r); !errors.Is(err, ErrNonPositiveRadius) {
			t.Errorf("ssz.Evaluate(%g): err = %v, want ErrNonPositiveRadius", r, err)
		}
		if _, err := ref.Evaluate(r); !errors.Is(err, ErrNonPositiveRadius) {
			t.Errorf("ref.Evaluate(%g): err = %v, want ErrNonPositiveRadius", r, err)
		}
	}
}

func TestReferenceHorizonOneSidedLimit(t *testing.T) {
	ref := mustSchwarzschild(t, MSun)
	rs := ref.GravRadius()

	limit, err := ref.Evaluate(rs * (1 + 1e-9))
	if err != nil {
		t.Fatalf("Evaluate just outside the horizon: %v", err)
	}

	// radii at or inside the horizon evaluate to the exterior limit
	for _, r := range []float64{rs, 0.5 * rs, rs * (1 + 1e-12)} {
		p, err := ref.Evaluate(r)
		if err != nil {
			t.Fatalf("Evaluate(%g): %v", r, err)
		}
		if p.A != limit.A || p.B != limit.B {
			t.Errorf("Evaluate(%g) = A %g B %g, want the one-sided limit A %g B %g",
				r, p.A, p.B, limit.A, limit.B)
		}
		if p.A <= 0 || math.IsInf(p.B, 0) {
			t.Errorf("Evaluate(%g) not a finite exterior point: A %g B %g", r, p.A, p.B)
		}
	}

	// the high-precision path follows the same limit, so the redshift
	// factor stays finite at the horizon
	c, err := precision.New(40)
	if err != nil {
		t.Fatalf("precision.New: %v", err)
	}
	z, _ := GravRedshift(c, ref, rs).Float64()
	if math.IsNaN(z) || math.IsInf(z, 0) || z <= 0 {
		t.Fatalf("1+z at the horizon = %g, want finite", z)
	}
	// A clamps to ~1e-9, so 1+z ≈ 1/√1e-9
	if z < 3.1e4 || z > 3.2e4 {
		t.Errorf("1+z at the horizon = %g, want ~3.16e4", z)
	}
}

func TestClosedFormDerivatives(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{"ssz_2pn", mustSSZ(t, MSun, SSZOptions{Calibration: Calibration2PN})},
		{"ssz_1pn", mustSSZ(t, MSun, SSZOptions{Calibration: Calibration1PN})},
		{"schwarzschild", mustSchwarzschild(t, MSun)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := 10 * tc.model.GravRadius()
			p, err := tc.model.Evaluate(r)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if !p.ClosedForm {
				t.Fatal("expected closed-form derivatives")
			}

			h := 1e-5 * r
			pp, _ := tc.model.Evaluate(r + h)
			pm, _ := tc.model.Evaluate(r - h)

			fdA1 := (pp.A - pm.A) / (2 * h)
			if e := relErr(fdA1, p.APrime); e > 1e-5 {
				t.Errorf("A' = %g vs finite difference %g (rel %g)", p.APrime, fdA1, e)
			}
			fdB1 := (pp.B - pm.B) / (2 * h)
			if e := relErr(fdB1, p.BPrime); e > 1e-5 {
				t.Errorf("B' = %g vs finite difference %g (rel %g)", p.BPrime, fdB1, e)
			}

			h2 := 1e-4 * r
			pp2, _ := tc.model.Evaluate(r + h2)
			pm2, _ := tc.model.Evaluate(r - h2)
			fdA2 := (pp2.A - 2*p.A + pm2.A) / (h2 * h2)
			if e := relErr(fdA2, p.APrime2); e > 1e-4 {
				t.Errorf("A'' = %g vs finite difference %g (rel %g)", p.APrime2, fdA2, e)
			}
		})
	}
}

func TestBlendedEvaluateHasNoClosedForm(t *testing.T) {
	m := mustSSZ(t, MSun, SSZOptions{InteriorBlend: true})
	p, err := m.Evaluate(5 * m.GravRadius())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if p.ClosedForm {
		t.Error("blended coefficient reported closed-form derivatives")
	}
	if p.A <= 0 || p.A > 1.01 {
		t.Errorf("blended A = %g out of range", p.A)
	}
}

// #endregion

// #region segment-density

func TestDilationIntersection(t *testing.T) {
	rs := SchwarzschildRadius(MSun)

	for _, sat := range []Saturation{SaturationExp, SaturationRational} {
		t.Run(string(sat), func(t *testing.T) {
			r, cert, err := FindIntersection(sat, rs)
			if err != nil {
				t.Fatalf("FindIntersection: %v", err)
			}
			if !cert.Converged {
				t.Fatalf("certificate not converged after %d iterations", cert.Iterations)
			}
			if r <= 1.1*rs || r >= 100*rs {
				t.Fatalf("intersection %g outside bracket", r)
			}
			if diff := math.Abs(DSSZ(sat, r, rs) - DGR(r, rs)); diff > 1e-9 {
				t.Errorf("dilation mismatch at intersection: %g", diff)
			}
		})
	}
}

func TestIntersectionIsMassIndependent(t *testing.T) {
	var ratios []float64
	for _, mass := range []float64{MEarth, MSun, 1e6 * MSun} {
		rs := SchwarzschildRadius(mass)
		r, _, err := FindIntersection(SaturationExp, rs)
		if err != nil {
			t.Fatalf("mass %g: %v", mass, err)
		}
		ratios = append(ratios, r/rs)
	}
	for _, u := range ratios {
		if math.Abs(u-ratios[0]) > 1e-9 {
			t.Fatalf("intersection ratio varies with mass: %v", ratios)
		}
	}
	if math.Abs(ratios[0]-1.38656) > 1e-3 {
		t.Errorf("universal intersection ratio = %g, want ~1.38656", ratios[0])
	}
}

func TestSegmentDensityLimits(t *testing.T) {
	rs := SchwarzschildRadius(MSun)
	for _, sat := range []Saturation{SaturationExp, SaturationRational} {
		if xi := Xi(sat, 1e-9*rs, rs); xi > 1e-6 {
			t.Errorf("%s: Ξ near origin = %g, want ~0", sat, xi)
		}
		if xi := Xi(sat, 1e6*rs, rs); xi < 0.999 {
			t.Errorf("%s: saturated Ξ = %g, want ~1", sat, xi)
		}
	}
}

// #endregion

// #region blend

func TestSafeCoefficientStaysPositive(t *testing.T) {
	for _, a := range []float64{-0.5, 0, 1e-15, 0.3, 1.0} {
		if got := ASafe(a); got <= 0 {
			t.Errorf("ASafe(%g) = %g, want > 0", a, got)
		}
	}
	// far above the floor the softplus is the identity to float resolution;
	// the asymptotic coefficient in particular must pass through untouched
	// or the flatness and causality checks drift
	for _, a := range []float64{0.9, 1.0} {
		if got := ASafe(a); math.Abs(got-a) > 1e-12 {
			t.Errorf("ASafe(%g) = %.17g, want identity", a, got)
		}
	}
}

func TestBlendRegularAtOrigin(t *testing.T) {
	rs := SchwarzschildRadius(MSun)
	rStar := 1.38656 * rs
	a := ABlended(SaturationExp, 1e-6*rs, rs, rStar, DefaultBlendWidth)
	if a < 0.99 || a > 1.0001 {
		t.Errorf("interior coefficient at origin = %g, want ~1", a)
	}
}

// #endregion

// #region consistency

func TestConsistencyChecks(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{"ssz_2pn", mustSSZ(t, MSun, SSZOptions{Calibration: Calibration2PN})},
		{"ssz_blended", mustSSZ(t, MSun, SSZOptions{InteriorBlend: true})},
		{"schwarzschild", mustSchwarzschild(t, MSun)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := CheckConsistency(tc.model)
			if err != nil {
				t.Fatalf("CheckConsistency: %v", err)
			}
			if !rep.OK() {
				t.Errorf("consistency failed: flat=%v causal=%v smooth=%v notes=%v",
					rep.AsymptoticallyFlat, rep.Causal, rep.Smooth, rep.Notes)
			}
		})
	}
}

// #endregion

// #region redshift

func TestGravRedshiftReference(t *testing.T) {
	c, err := precision.New(40)
	if err != nil {
		t.Fatalf("precision.New: %v", err)
	}
	ref := mustSchwarzschild(t, MSun)

	// at r = 2 r_s the reference factor is 1/√(1/2) = √2
	z, _ := GravRedshift(c, ref, 2*ref.GravRadius()).Float64()
	if math.Abs(z-math.Sqrt2) > 1e-14 {
		t.Errorf("1+z at 2 r_s = %.17g, want √2", z)
	}
}

func TestPredictRedshift(t *testing.T) {
	c, err := precision.New(40)
	if err != nil {
		t.Fatalf("precision.New: %v", err)
	}
	ssz := mustSSZ(t, MSun, SSZOptions{})
	r := RSun

	t.Run("at_rest_matches_gravitational", func(t *testing.T) {
		z, err := PredictRedshift(c, ssz, r, 0, 0)
		if err != nil {
			t.Fatalf("PredictRedshift: %v", err)
		}
		want := c.Sub(GravRedshift(c, ssz, r), c.FromInt(1))
		zf, _ := z.Float64()
		wf, _ := want.Float64()
		if math.Abs(zf-wf) > 1e-18 {
			t.Errorf("z = %g, want %g", zf, wf)
		}
	})

	t.Run("receding_source_is_redder", func(t *testing.T) {
		z0, _ := PredictRedshift(c, ssz, r, 1e5, 0)
		z1, _ := PredictRedshift(c, ssz, r, 1e5, 1e5)
		if z1.Cmp(z0) <= 0 {
			t.Error("positive line-of-sight velocity did not increase z")
		}
	})

	t.Run("superluminal_rejected", func(t *testing.T) {
		if _, err := PredictRedshift(c, ssz, r, 1.1*C, 0); !errors.Is(err, ErrSuperluminal) {
			t.Errorf("err = %v, want ErrSuperluminal", err)
		}
	})

	t.Run("bad_radius_rejected", func(t *testing.T) {
		if _, err := PredictRedshift(c, ssz, 0, 0, 0); !errors.Is(err, ErrNonPositiveRadius) {
			t.Errorf("err = %v, want ErrNonPositiveRadius", err)
		}
	})
}

func TestEvalBigAgreesWithFloat(t *testing.T) {
	c, err := precision.New(40)
	if err != nil {
		t.Fatalf("precision.New: %v", err)
	}

	tests := []struct {
		name  string
		model *SSZ
	}{
		{"exterior", mustSSZ(t, MSun, SSZOptions{})},
		// the blended path applies the softplus floor in both renditions
		{"blended", mustSSZ(t, MSun, SSZOptions{InteriorBlend: true})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, mult := range []float64{2, 10, 1e4} {
				r := mult * tc.model.GravRadius()
				p, err := tc.model.Evaluate(r)
				if err != nil {
					t.Fatalf("Evaluate at %g r_s: %v", mult, err)
				}
				big, _ := tc.model.EvalBig(c, r).Float64()
				if e := relErr(big, p.A); e > 1e-13 {
					t.Errorf("at %g r_s: EvalBig = %.17g vs Evaluate = %.17g (rel %g)", mult, big, p.A, e)
				}
			}
		})
	}
}

// #endregion

// #region mass-inversion

func TestMassRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mass float64
	}{
		{"solar", MSun},
		{"earth", MEarth},
		{"small_body_nonlinear_regime", 1e20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rPhi := CorrectedRadius(tc.mass)
			got, cert, err := MassFromCorrectedRadius(rPhi, 1e-12, 200)
			if err != nil {
				t.Fatalf("MassFromCorrectedRadius: %v", err)
			}
			if !cert.Converged || cert.Iterations > 200 {
				t.Fatalf("certificate: converged=%v iterations=%d", cert.Converged, cert.Iterations)
			}
			if cert.Target != rPhi {
				t.Errorf("certificate target = %g, want %g", cert.Target, rPhi)
			}
			// the relative residual makes the tolerance scale free, so the
			// sub-millimetre body recovers as sharply as the stellar ones
			if e := relErr(got, tc.mass); e > 1e-12 {
				t.Errorf("recovered mass %g, want %g (rel %g)", got, tc.mass, e)
			}
		})
	}
}

func TestDeltaMSaturatesForStellarMasses(t *testing.T) {
	if d := DeltaM(MSun); math.Abs(d-1.96) > 1e-9 {
		t.Errorf("Δ(M☉) = %g, want 1.96", d)
	}
	if d := DeltaM(1e20); d < 50 {
		t.Errorf("Δ(small body) = %g, want exponential regime well above the floor", d)
	}
}

// #endregion
