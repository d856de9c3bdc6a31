// Package confidence scores how well the ratio deviation signal leads forward returns.
package confidence

import (
	"math"
	"sort"

	"RatioLab/internal/domain/models"
)

// DefaultHorizon is the forward return horizon in minutes.
const DefaultHorizon = 10

const minCorrSamples = 3

// MinFisherSamples is the sample count below which confidence is zero.
const MinFisherSamples = 5

// Score is the intraday signal/forward-return correlation for one day.
type Score struct {
	Samples    int
	Pearson    float64
	Spearman   float64
	Confidence float64
}

// ForwardReturns returns (p[t+h] - p[t]) / p[t] for every t with a forward price. The
// return is NaN when either price is non-finite or not positive.
func ForwardReturns(px []float64, h int) []float64 {
	if h <= 0 || len(px) <= h {
		return nil
	}
	out := make([]float64, len(px)-h)
	for i := range out {
		if !validPrice(px[i]) || !validPrice(px[i+h]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (px[i+h] - px[i]) / px[i]
	}
	return out
}

// WeightedCorr is the Pearson correlation of x and y under weights w (nil for equal).
// Pairs with a non-finite value or non-positive weight are dropped. NaN if fewer than three
// pairs remain or either side has no variance.
func WeightedCorr(x, y, w []float64) float64 {
	var xs, ys, ws []float64
	for i := range x {
		if i >= len(y) || !finite(x[i]) || !finite(y[i]) {
			continue
		}
		wi := 1.0
		if w != nil {
			if i >= len(w) || !finite(w[i]) || !(w[i] > 0) {
				continue
			}
			wi = w[i]
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
		ws = append(ws, wi)
	}
	if len(xs) < minCorrSamples {
		return math.NaN()
	}
	var sw, mx, my float64
	for i := range xs {
		sw += ws[i]
		mx += ws[i] * xs[i]
		my += ws[i] * ys[i]
	}
	mx /= sw
	my /= sw
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += ws[i] * dx * dy
		vx += ws[i] * dx * dx
		vy += ws[i] * dy * dy
	}
	denom := math.Sqrt(vx / sw * vy / sw)
	if !(denom > 0) {
		return math.NaN()
	}
	return cov / sw / denom
}

// Spearman is WeightedCorr over average ranks.
func Spearman(x, y, w []float64) float64 {
	return WeightedCorr(averageRanks(x), averageRanks(y), w)
}

// averageRanks assigns 1-based ranks, averaging ties. Non-finite values stay NaN.
func averageRanks(xs []float64) []float64 {
	idx := make([]int, 0, len(xs))
	ranks := make([]float64, len(xs))
	for i, x := range xs {
		ranks[i] = math.NaN()
		if finite(x) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Fisher maps a correlation and sample size to a 0..100 score.
func Fisher(r float64, n int) float64 {
	if !finite(r) || n < MinFisherSamples {
		return 0
	}
	r = math.Max(-0.999999, math.Min(0.999999, r))
	z := math.Atanh(r) * math.Sqrt(math.Max(float64(n-3), 1))
	score := 100 * (1 - math.Exp(-math.Abs(z)))
	return math.Max(0, math.Min(100, score))
}

// DaySignal correlates ratio/base - 1 with the forward h-minute asset return over one
// day's bars, weighting by dollar volume. Bars with a degenerate asset or benchmark close
// contribute no pair, either as the signal minute or as the forward price.
func DaySignal(bars []models.MinuteBar, base float64, h int) Score {
	none := Score{Pearson: math.NaN(), Spearman: math.NaN()}
	if len(bars) == 0 || !finite(base) || base == 0 || h <= 0 || len(bars) <= h {
		return none
	}
	px := make([]float64, len(bars))
	sig := make([]float64, len(bars)-h)
	w := make([]float64, len(bars)-h)
	for i, b := range bars {
		px[i] = b.AssetClose
		if i < len(sig) {
			sig[i] = math.NaN()
			if validPrice(b.AssetClose) && validPrice(b.BenchmarkClose) {
				sig[i] = (b.BenchmarkClose/b.AssetClose)/base - 1
			}
			w[i] = b.DollarVolume()
		}
	}
	fwd := ForwardReturns(px, h)
	n := 0
	for i := range sig {
		if finite(sig[i]) && finite(fwd[i]) {
			n++
		}
	}
	pear := WeightedCorr(sig, fwd, w)
	return Score{
		Samples:    n,
		Pearson:    pear,
		Spearman:   Spearman(sig, fwd, w),
		Confidence: Fisher(pear, n),
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func validPrice(p float64) bool { return finite(p) && p > 0 }
