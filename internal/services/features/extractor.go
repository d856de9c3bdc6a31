package features

import (
	"math"

	"RatioLab/internal/domain/models"
)

// SimpleReturns computes r_t = p_t / p_{t-1} - 1, skipping pairs with a non-positive price.
// It returns nil if there are fewer than two prices.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		cur := prices[i]
		if !(prev > 0) || !(cur > 0) {
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

func assetPrices(bars []models.MinuteBar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Tradable() {
			out = append(out, b.AssetClose)
		}
	}
	return out
}

func benchPrices(bars []models.MinuteBar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.BenchmarkClose > 0 && !math.IsInf(b.BenchmarkClose, 0) {
			out = append(out, b.BenchmarkClose)
		}
	}
	return out
}

// RegimeFeatures derives the features for day cur from the previous trading day and cur's
// opening bar. Every value is known at cur's open. Features that cannot be computed are NaN.
func RegimeFeatures(prev, cur []models.MinuteBar) models.RegimeFeatures {
	f := models.MissingFeatures()
	pb := benchPrices(prev)
	pa := assetPrices(prev)

	if len(pb) >= 2 {
		first, last := pb[0], pb[len(pb)-1]
		f.BenchPrevRet = last/first - 1
		f.BenchPrevVol = Std(SimpleReturns(pb))
		hi, lo := pb[0], pb[0]
		for _, p := range pb {
			hi = math.Max(hi, p)
			lo = math.Min(lo, p)
		}
		f.BenchPrevRange = (hi - lo) / last
	}

	cb := benchPrices(cur)
	if len(pb) > 0 && len(cb) > 0 {
		f.BenchOvernightRet = cb[0]/pb[len(pb)-1] - 1
	}

	ca := assetPrices(cur)
	if len(pa) >= 2 && len(ca) > 0 {
		sd := Std(SimpleReturns(pa))
		if sd > 0 {
			gap := ca[0]/pa[len(pa)-1] - 1
			f.OpenGapZ = gap / sd
		}
	}

	if len(prev) > 0 {
		dv := make([]float64, 0, len(prev))
		for _, b := range prev {
			if b.Tradable() {
				dv = append(dv, b.DollarVolume())
			}
		}
		f.LiqMedian = Median(dv)
	}
	return f
}
