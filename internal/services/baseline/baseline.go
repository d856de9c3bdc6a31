// Package baseline implements the five reference-ratio estimators.
package baseline

import (
	"math"
	"sort"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/features"
)

// DefaultMinSamples is the smallest window that yields a defined baseline.
const DefaultMinSamples = 30

// Options tunes the estimators.
type Options struct {
	MinSamples int
	// WinsorLow and WinsorHigh are fractions in [0, 1].
	WinsorLow  float64
	WinsorHigh float64
}

// DefaultOptions returns 30 samples and 1%/99% winsorization.
func DefaultOptions() Options {
	return Options{MinSamples: DefaultMinSamples, WinsorLow: 0.01, WinsorHigh: 0.99}
}

// Validate rejects impossible option combinations.
func (o Options) Validate() error {
	if o.MinSamples < 1 {
		return models.NewConfigError("min_samples", "must be >= 1, got %d", o.MinSamples)
	}
	if o.WinsorLow < 0 || o.WinsorHigh > 1 || o.WinsorLow > o.WinsorHigh {
		return models.NewConfigError("winsor", "need 0 <= low <= high <= 1, got %g/%g", o.WinsorLow, o.WinsorHigh)
	}
	return nil
}

// Result is an estimate together with the number of rows that survived filtering.
type Result struct {
	Value   float64
	Defined bool
	Samples int
}

type sample struct {
	ratio float64
	asset float64
	bench float64
	volA  float64
	volB  float64
}

// usable drops rows with a non-positive or non-finite asset price, or a non-finite
// benchmark price. Volumes are clipped at zero.
func usable(rows []models.MinuteBar) []sample {
	out := make([]sample, 0, len(rows))
	for _, b := range rows {
		if !b.Tradable() {
			continue
		}
		r, ok := b.Ratio()
		if !ok {
			continue
		}
		out = append(out, sample{
			ratio: r,
			asset: b.AssetClose,
			bench: b.BenchmarkClose,
			volA:  clipVolume(b.AssetVolume),
			volB:  clipVolume(b.BenchmarkVolume),
		})
	}
	return out
}

func clipVolume(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Estimate returns the baseline for rows under method; ok is false when undefined.
func Estimate(rows []models.MinuteBar, method models.Method, opts Options) (float64, bool) {
	r := Compute(rows, method, opts)
	return r.Value, r.Defined
}

// Compute is Estimate with the surviving sample count.
func Compute(rows []models.MinuteBar, method models.Method, opts Options) Result {
	if opts.MinSamples < 1 {
		opts.MinSamples = 1
	}
	s := usable(rows)
	res := Result{Value: math.NaN(), Samples: len(s)}
	if len(s) < opts.MinSamples || len(s) == 0 {
		return res
	}
	var v float64
	switch method {
	case models.MethodEqualMean:
		v = equalMean(s)
	case models.MethodVWAPRatio:
		v = vwapRatio(s)
	case models.MethodVolWeighted:
		v = volWeighted(ratios(s), s)
	case models.MethodWinsorized:
		v = winsorized(s, opts.WinsorLow, opts.WinsorHigh)
	case models.MethodWeightedMedian:
		v = weightedMedian(s)
	default:
		return res
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return res
	}
	res.Value = v
	res.Defined = true
	return res
}

func ratios(s []sample) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].ratio
	}
	return out
}

func equalMean(s []sample) float64 {
	sum := 0.0
	for _, x := range s {
		sum += x.ratio
	}
	return sum / float64(len(s))
}

func vwapRatio(s []sample) float64 {
	var pa, va, pb, vb, sa, sb float64
	for _, x := range s {
		pa += x.asset * x.volA
		va += x.volA
		pb += x.bench * x.volB
		vb += x.volB
		sa += x.asset
		sb += x.bench
	}
	n := float64(len(s))
	assetVWAP := sa / n
	if va > 0 {
		assetVWAP = pa / va
	}
	benchVWAP := sb / n
	if vb > 0 {
		benchVWAP = pb / vb
	}
	if assetVWAP <= 0 {
		return math.NaN()
	}
	return benchVWAP / assetVWAP
}

// volWeighted weights vals by the samples' asset volume, falling back to the plain mean.
func volWeighted(vals []float64, s []sample) float64 {
	var num, den, sum float64
	for i, x := range s {
		num += vals[i] * x.volA
		den += x.volA
		sum += vals[i]
	}
	if den <= 0 {
		return sum / float64(len(vals))
	}
	return num / den
}

func winsorized(s []sample, low, high float64) float64 {
	rs := ratios(s)
	p, ok := features.Percentiles(rs, low*100, high*100)
	if !ok {
		return math.NaN()
	}
	lo, hi := p[0], p[1]
	clipped := make([]float64, len(rs))
	for i, r := range rs {
		clipped[i] = math.Min(math.Max(r, lo), hi)
	}
	return volWeighted(clipped, s)
}

// weightedMedian returns the first ratio whose cumulative volume reaches half the total.
// Zero total volume weights every row equally.
func weightedMedian(s []sample) float64 {
	idx := make([]int, len(s))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := s[idx[a]], s[idx[b]]
		if x.ratio != y.ratio {
			return x.ratio < y.ratio
		}
		return x.volA < y.volA
	})
	total := 0.0
	for _, x := range s {
		total += x.volA
	}
	weight := func(i int) float64 { return s[i].volA }
	if total <= 0 {
		total = float64(len(s))
		weight = func(int) float64 { return 1 }
	}
	cutoff := 0.5 * total
	cum := 0.0
	for _, i := range idx {
		cum += weight(i)
		if cum >= cutoff {
			return s[i].ratio
		}
	}
	return s[idx[len(idx)-1]].ratio
}
