package baseline

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
)

func bar(asset, bench, volA, volB float64) models.MinuteBar {
	return models.MinuteBar{
		Timestamp:       time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC),
		AssetClose:      asset,
		AssetVolume:     volA,
		BenchmarkClose:  bench,
		BenchmarkVolume: volB,
	}
}

func opts(min int) Options {
	o := DefaultOptions()
	o.MinSamples = min
	return o
}

func TestConstantRatioAllMethods(t *testing.T) {
	rows := make([]models.MinuteBar, 40)
	for i := range rows {
		rows[i] = bar(4, 10, 100, 7)
	}
	for _, m := range models.AllMethods() {
		got, ok := Estimate(rows, m, DefaultOptions())
		if !ok {
			t.Fatalf("%s: expected defined", m)
		}
		if got != 2.5 {
			t.Fatalf("%s: expected 2.5, got %v", m, got)
		}
	}
}

func TestEqualMean(t *testing.T) {
	rows := []models.MinuteBar{bar(1, 2, 5, 1), bar(1, 3, 900, 1), bar(1, 4, 0, 1)}
	got, ok := Estimate(rows, models.MethodEqualMean, opts(1))
	if !ok || got != 3 {
		t.Fatalf("expected 3, got %v (%v)", got, ok)
	}
}

func TestWinsorFullRangeEqualsVolWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([]models.MinuteBar, 50)
	for i := range rows {
		rows[i] = bar(10+rng.Float64(), 20+5*rng.Float64(), float64(rng.Intn(1000)), 1)
	}
	o := opts(1)
	o.WinsorLow, o.WinsorHigh = 0, 1
	w, _ := Estimate(rows, models.MethodWinsorized, o)
	v, _ := Estimate(rows, models.MethodVolWeighted, o)
	if w != v {
		t.Fatalf("winsorized %v != vol weighted %v", w, v)
	}
}

func TestWinsorClipsOutlier(t *testing.T) {
	rows := make([]models.MinuteBar, 0, 101)
	for i := 0; i < 100; i++ {
		rows = append(rows, bar(1, 2, 10, 1))
	}
	rows = append(rows, bar(1, 1000, 10, 1))
	w, _ := Estimate(rows, models.MethodWinsorized, opts(1))
	v, _ := Estimate(rows, models.MethodVolWeighted, opts(1))
	if !(w < v) {
		t.Fatalf("expected winsorized %v below vol weighted %v", w, v)
	}
}

func TestWeightedMedianOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	rows := make([]models.MinuteBar, 60)
	for i := range rows {
		rows[i] = bar(1, float64(1+rng.Intn(20)), float64(rng.Intn(50)), 1)
	}
	want, ok := Estimate(rows, models.MethodWeightedMedian, opts(1))
	if !ok {
		t.Fatalf("expected defined")
	}
	for k := 0; k < 20; k++ {
		shuffled := append([]models.MinuteBar(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, _ := Estimate(shuffled, models.MethodWeightedMedian, opts(1))
		if got != want {
			t.Fatalf("shuffle %d: got %v want %v", k, got, want)
		}
	}
}

func TestWeightedMedianLowerOfTie(t *testing.T) {
	// Cumulative weight hits exactly half at ratio 2.
	rows := []models.MinuteBar{bar(1, 3, 5, 1), bar(1, 1, 2, 1), bar(1, 2, 3, 1)}
	got, _ := Estimate(rows, models.MethodWeightedMedian, opts(1))
	if got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestVWAPRatioUsesPriceVWAP(t *testing.T) {
	rows := []models.MinuteBar{bar(10, 100, 1, 3), bar(20, 100, 3, 1)}
	// asset vwap = (10+60)/4 = 17.5, bench vwap = 100
	got, _ := Estimate(rows, models.MethodVWAPRatio, opts(1))
	if math.Abs(got-100/17.5) > 1e-12 {
		t.Fatalf("unexpected vwap ratio %v", got)
	}
}

func TestZeroVolumeFallsBackToMean(t *testing.T) {
	rows := []models.MinuteBar{bar(1, 2, 0, 0), bar(1, 4, 0, 0)}
	for _, m := range []models.Method{models.MethodVolWeighted, models.MethodVWAPRatio} {
		got, ok := Estimate(rows, m, opts(1))
		if !ok || got != 3 {
			t.Fatalf("%s: expected 3, got %v", m, got)
		}
	}
}

func TestDegenerateRowsExcluded(t *testing.T) {
	rows := []models.MinuteBar{
		bar(0, 5, 10, 1),
		bar(-1, 5, 10, 1),
		bar(math.NaN(), 5, 10, 1),
		bar(2, math.Inf(1), 10, 1),
		bar(2, 4, -50, 1),
		bar(2, 6, 10, 1),
	}
	r := Compute(rows, models.MethodVolWeighted, opts(1))
	if r.Samples != 2 {
		t.Fatalf("expected 2 usable rows, got %d", r.Samples)
	}
	if r.Value != 3 {
		t.Fatalf("negative volume should clip to zero weight, got %v", r.Value)
	}
}

func TestBelowMinSamplesUndefined(t *testing.T) {
	rows := make([]models.MinuteBar, DefaultMinSamples-1)
	for i := range rows {
		rows[i] = bar(1, 2, 1, 1)
	}
	if _, ok := Estimate(rows, models.MethodEqualMean, DefaultOptions()); ok {
		t.Fatalf("expected undefined below minimum samples")
	}
	if _, ok := Estimate(nil, models.MethodVWAPRatio, DefaultOptions()); ok {
		t.Fatalf("expected undefined for empty window")
	}
}

func TestSingleSampleAgreesAcrossMethods(t *testing.T) {
	rows := []models.MinuteBar{bar(8, 2, 3, 9)}
	for _, m := range models.AllMethods() {
		got, ok := Estimate(rows, m, opts(1))
		if !ok || got != 0.25 {
			t.Fatalf("%s: expected 0.25, got %v", m, got)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name string
		o    Options
		ok   bool
	}{
		{"default", DefaultOptions(), true},
		{"zero samples", Options{MinSamples: 0, WinsorHigh: 1}, false},
		{"inverted", Options{MinSamples: 1, WinsorLow: 0.9, WinsorHigh: 0.1}, false},
		{"above one", Options{MinSamples: 1, WinsorHigh: 1.5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.o.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("unexpected err %v", err)
			}
		})
	}
}
