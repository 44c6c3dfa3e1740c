// Package stats provides the comparative statistics used to judge one metric
// model against another: an exact binomial sign test on paired wins and a
// seeded bootstrap confidence interval on the paired error improvements.
// Every routine is deterministic for a fixed seed.
package stats

// #region imports
import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// #endregion

// #region outcome

// Outcome classifies one observation after both models were evaluated on it.
type Outcome string

const (
	// OutcomeWin means the candidate model predicted closer to the
	// observation than the reference.
	OutcomeWin Outcome = "win"
	// OutcomeLoss means the reference predicted closer.
	OutcomeLoss Outcome = "loss"
	// OutcomeDegraded means the case failed evaluation and carries no
	// comparative signal. Degraded cases stay in the totals but never
	// enter the win-rate denominator or the test statistics.
	OutcomeDegraded Outcome = "degraded"
)

// Case is one paired comparison.
type Case struct {
	ID string
	// Delta is the paired improvement, reference error minus candidate
	// error, so positive favors the candidate.
	Delta float64
	// RadiusRatio is r/r_s of the underlying observation, used for
	// stratification by field-strength regime.
	RadiusRatio float64
	Outcome     Outcome
}

// #endregion

// #region options

// Alternative selects the sign-test hypothesis.
type Alternative string

const (
	TwoSided Alternative = "two-sided"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

// Options tunes the harness. The zero value selects the defaults.
type Options struct {
	// Resamples is the bootstrap replicate count; zero selects 2000.
	Resamples int
	// Seed feeds the bootstrap generator; runs with equal seeds produce
	// identical intervals.
	Seed int64
	// Alternative defaults to TwoSided.
	Alternative Alternative
	// Confidence is the CI level; zero selects 0.95.
	Confidence float64
}

const (
	defaultResamples  = 2000
	defaultConfidence = 0.95
)

func (o Options) withDefaults() Options {
	if o.Resamples <= 0 {
		o.Resamples = defaultResamples
	}
	if o.Alternative == "" {
		o.Alternative = TwoSided
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = defaultConfidence
	}
	return o
}

// ErrNoCases is returned when a statistic has no usable input.
var ErrNoCases = errors.New("stats: no usable cases")

// #endregion

// #region binomial

// logChoose returns ln C(n, k) via the log-gamma function, stable for the
// case counts this engine sees.
func logChoose(n, k int) float64 {
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk
}

// binomPMF returns P(K = k) for K ~ Binomial(n, p).
func binomPMF(k, n int, p float64) float64 {
	if p <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	if p >= 1 {
		if k == n {
			return 1
		}
		return 0
	}
	lp := logChoose(n, k) + float64(k)*math.Log(p) + float64(n-k)*math.Log(1-p)
	return math.Exp(lp)
}

// BinomialSignTest returns the exact p-value for observing wins successes in
// n = wins + losses informative trials under H0: P(win) = p. The two-sided
// p-value sums every outcome no more probable than the observed one.
func BinomialSignTest(wins, losses int, p float64, alt Alternative) (float64, error) {
	if wins < 0 || losses < 0 {
		return 0, fmt.Errorf("stats: negative counts %d/%d", wins, losses)
	}
	n := wins + losses
	if n == 0 {
		return 0, ErrNoCases
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("stats: null probability %g outside (0, 1)", p)
	}
	if alt == "" {
		alt = TwoSided
	}

	switch alt {
	case Greater:
		var sum float64
		for k := wins; k <= n; k++ {
			sum += binomPMF(k, n, p)
		}
		return math.Min(sum, 1), nil
	case Less:
		var sum float64
		for k := 0; k <= wins; k++ {
			sum += binomPMF(k, n, p)
		}
		return math.Min(sum, 1), nil
	case TwoSided:
		obs := binomPMF(wins, n, p)
		// small relative slack absorbs float noise in the PMF comparison
		limit := obs * (1 + 1e-7)
		var sum float64
		for k := 0; k <= n; k++ {
			if pk := binomPMF(k, n, p); pk <= limit {
				sum += pk
			}
		}
		return math.Min(sum, 1), nil
	default:
		return 0, fmt.Errorf("stats: unknown alternative %q", alt)
	}
}

// #endregion

// #region bootstrap

// CI is a percentile bootstrap confidence interval around the sample median.
type CI struct {
	Level  float64
	Lo     float64
	Hi     float64
	Median float64
}

// BootstrapCI resamples the paired deltas with replacement and returns the
// percentile interval of the resampled medians. The generator is seeded from
// opts.Seed, so the interval is reproducible.
func BootstrapCI(deltas []float64, opts Options) (CI, error) {
	opts = opts.withDefaults()
	n := len(deltas)
	if n == 0 {
		return CI{}, ErrNoCases
	}

	sorted := append([]float64(nil), deltas...)
	sort.Float64s(sorted)
	point := medianSorted(sorted)

	rng := rand.New(rand.NewSource(opts.Seed))
	medians := make([]float64, opts.Resamples)
	sample := make([]float64, n)
	for i := range medians {
		for j := range sample {
			sample[j] = deltas[rng.Intn(n)]
		}
		sort.Float64s(sample)
		medians[i] = medianSorted(sample)
	}
	sort.Float64s(medians)

	alpha := 1 - opts.Confidence
	return CI{
		Level:  opts.Confidence,
		Lo:     quantileSorted(medians, alpha/2),
		Hi:     quantileSorted(medians, 1-alpha/2),
		Median: point,
	}, nil
}

func medianSorted(s []float64) float64 {
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

func quantileSorted(s []float64, q float64) float64 {
	idx := int(q * float64(len(s)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s) {
		idx = len(s) - 1
	}
	return s[idx]
}

// #endregion

// #region summary

// Summary aggregates one batch of paired cases.
type Summary struct {
	Wins     int
	Losses   int
	Degraded int
	Total    int

	// WinRate is wins over informative cases; degraded cases are excluded
	// from the denominator.
	WinRate float64
	PValue  float64
	DeltaCI CI
}

// Evaluate runs the sign test and the bootstrap interval over one batch.
// Batches with no informative cases return ErrNoCases.
func Evaluate(cases []Case, opts Options) (Summary, error) {
	opts = opts.withDefaults()

	s := Summary{Total: len(cases)}
	var deltas []float64
	for _, c := range cases {
		switch c.Outcome {
		case OutcomeWin:
			s.Wins++
			deltas = append(deltas, c.Delta)
		case OutcomeLoss:
			s.Losses++
			deltas = append(deltas, c.Delta)
		default:
			s.Degraded++
		}
	}

	informative := s.Wins + s.Losses
	if informative == 0 {
		return s, ErrNoCases
	}
	s.WinRate = float64(s.Wins) / float64(informative)

	p, err := BinomialSignTest(s.Wins, s.Losses, 0.5, opts.Alternative)
	if err != nil {
		return s, err
	}
	s.PValue = p

	ci, err := BootstrapCI(deltas, opts)
	if err != nil {
		return s, err
	}
	s.DeltaCI = ci
	return s, nil
}

// #endregion
