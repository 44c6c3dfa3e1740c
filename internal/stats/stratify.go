package stats

// #region imports
import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// #endregion

// #region strata

// Stratum is one half-open field-strength band [Lo, Hi) in units of r/r_s.
type Stratum struct {
	Label string
	Lo    float64
	Hi    float64
}

// StratumResult is the per-band summary. Bands with no informative cases
// carry NaN statistics but keep their counts, so the partition invariant
// (band totals sum to the batch size) always holds.
type StratumResult struct {
	Stratum Stratum
	Summary Summary
}

// DefaultCutoffs separates the strong-field, transition and weak-field
// regimes.
var DefaultCutoffs = []float64{3, 100}

// #endregion

// #region stratify

// Strata builds the half-open bands implied by ascending r/r_s cutoffs:
// [0, c0), [c0, c1), ..., [cN, ∞).
func Strata(cutoffs []float64) ([]Stratum, error) {
	for i := 1; i < len(cutoffs); i++ {
		if cutoffs[i] <= cutoffs[i-1] {
			return nil, fmt.Errorf("stats: cutoffs not strictly ascending at %g", cutoffs[i])
		}
	}
	bounds := append(append([]float64{0}, cutoffs...), math.Inf(1))
	strata := make([]Stratum, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		var label string
		switch {
		case math.IsInf(hi, 1):
			label = fmt.Sprintf("r/rs>=%g", lo)
		default:
			label = fmt.Sprintf("r/rs[%g,%g)", lo, hi)
		}
		strata = append(strata, Stratum{Label: label, Lo: lo, Hi: hi})
	}
	return strata, nil
}

// Stratify partitions the batch by a caller-supplied key and summarizes each
// stratum independently. Every case lands in exactly one stratum, so the
// stratum totals sum to the batch size for any key. Strata whose cases are
// all degraded carry NaN statistics but keep their counts.
func Stratify(cases []Case, key func(Case) string, opts Options) (map[string]StratumResult, error) {
	if key == nil {
		return nil, fmt.Errorf("stats: nil stratification key")
	}

	buckets := make(map[string][]Case)
	for _, c := range cases {
		k := key(c)
		buckets[k] = append(buckets[k], c)
	}

	results := make(map[string]StratumResult, len(buckets))
	for k, bucket := range buckets {
		sum, err := Evaluate(bucket, opts)
		if err != nil && !errors.Is(err, ErrNoCases) {
			return nil, err
		}
		if errors.Is(err, ErrNoCases) {
			sum.WinRate = math.NaN()
			sum.PValue = math.NaN()
		}
		results[k] = StratumResult{Stratum: Stratum{Label: k}, Summary: sum}
	}
	return results, nil
}

// RadiusBandKey returns the canned key that assigns each case to its
// half-open r/r_s band, labelled as by Strata.
func RadiusBandKey(cutoffs []float64) (func(Case) string, error) {
	strata, err := Strata(cutoffs)
	if err != nil {
		return nil, err
	}
	return func(c Case) string {
		idx := sort.Search(len(strata), func(i int) bool { return c.RadiusRatio < strata[i].Hi })
		if idx == len(strata) {
			// NaN compares false against every bound; file it in the
			// open-ended band rather than panicking
			idx--
		}
		return strata[idx].Label
	}, nil
}

// StratifiedEvaluate partitions the batch into ascending r/r_s bands and
// returns them in band order, including empty bands, so the report always
// covers the full field-strength range.
func StratifiedEvaluate(cases []Case, cutoffs []float64, opts Options) ([]StratumResult, error) {
	strata, err := Strata(cutoffs)
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		if math.IsNaN(c.RadiusRatio) || c.RadiusRatio < 0 {
			return nil, fmt.Errorf("stats: case %s has invalid radius ratio %g", c.ID, c.RadiusRatio)
		}
	}

	key, err := RadiusBandKey(cutoffs)
	if err != nil {
		return nil, err
	}
	byLabel, err := Stratify(cases, key, opts)
	if err != nil {
		return nil, err
	}

	results := make([]StratumResult, len(strata))
	for i, st := range strata {
		results[i] = StratumResult{
			Stratum: st,
			Summary: Summary{WinRate: math.NaN(), PValue: math.NaN()},
		}
		if r, ok := byLabel[st.Label]; ok {
			results[i].Summary = r.Summary
		}
	}
	return results, nil
}

// #endregion
