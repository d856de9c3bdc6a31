package confidence

import (
	"math"
	"testing"

	"RatioLab/internal/domain/models"
)

func TestFisherBounds(t *testing.T) {
	if got := Fisher(0.9, 4); got != 0 {
		t.Fatalf("expected 0 below five samples, got %v", got)
	}
	if got := Fisher(math.NaN(), 100); got != 0 {
		t.Fatalf("expected 0 for NaN, got %v", got)
	}
	if got := Fisher(0, 100); got != 0 {
		t.Fatalf("expected 0 for zero correlation, got %v", got)
	}
	for _, r := range []float64{-1, -0.5, 0.2, 0.7, 1} {
		got := Fisher(r, 50)
		if got <= 0 || got > 100 {
			t.Fatalf("Fisher(%v) out of range: %v", r, got)
		}
	}
	if Fisher(0.5, 50) != Fisher(-0.5, 50) {
		t.Fatalf("expected symmetric score")
	}
	if !(Fisher(0.3, 100) > Fisher(0.3, 10)) {
		t.Fatalf("expected more samples to raise confidence")
	}
}

func TestWeightedCorr(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	if got := WeightedCorr(x, []float64{2, 4, 6, 8}, nil); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := WeightedCorr(x, []float64{8, 6, 4, 2}, []float64{1, 2, 3, 4}); math.Abs(got+1) > 1e-12 {
		t.Fatalf("expected -1, got %v", got)
	}
	if got := WeightedCorr([]float64{1, 2}, []float64{1, 2}, nil); !math.IsNaN(got) {
		t.Fatalf("expected NaN for two samples, got %v", got)
	}
	if got := WeightedCorr(x, []float64{5, 5, 5, 5}, nil); !math.IsNaN(got) {
		t.Fatalf("expected NaN for constant series, got %v", got)
	}
}

func TestSpearmanMonotonic(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125}
	if got := Spearman(x, y, nil); math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected 1, got %v", got)
	}
	r := averageRanks([]float64{3, 1, 3, math.NaN()})
	if r[0] != 2.5 || r[1] != 1 || r[2] != 2.5 || !math.IsNaN(r[3]) {
		t.Fatalf("unexpected ranks %v", r)
	}
}

func TestForwardReturns(t *testing.T) {
	got := ForwardReturns([]float64{10, 11, 12, 9}, 2)
	if len(got) != 2 || math.Abs(got[0]-0.2) > 1e-12 || math.Abs(got[1]+2.0/11) > 1e-12 {
		t.Fatalf("unexpected forward returns %v", got)
	}
	if ForwardReturns([]float64{1, 2}, 2) != nil {
		t.Fatalf("expected nil when horizon covers the series")
	}
	masked := ForwardReturns([]float64{10, 11, 0, math.NaN(), 12}, 2)
	if !math.IsNaN(masked[0]) || !math.IsNaN(masked[1]) || !math.IsNaN(masked[2]) {
		t.Fatalf("expected NaN where a price is zero or missing, got %v", masked)
	}
}

func TestDaySignalSkipsDegenerateBars(t *testing.T) {
	n := 40
	bars := make([]models.MinuteBar, n)
	px := 100.0
	for i := range bars {
		dev := math.Sin(float64(i))
		bars[i] = models.MinuteBar{AssetClose: px, AssetVolume: 10, BenchmarkClose: px * (1 + 0.01*dev)}
		px *= 1 + 0.001*dev
	}
	clean := DaySignal(bars, 1, 1)

	// A zero close removes the pair starting at that bar and the one ending there.
	bars[20].AssetClose = 0
	s := DaySignal(bars, 1, 1)
	if s.Samples != n-3 {
		t.Fatalf("expected %d samples, got %d", n-3, s.Samples)
	}
	if !(s.Pearson > 0.9) || math.Abs(s.Pearson-clean.Pearson) > 0.05 {
		t.Fatalf("degenerate bar skewed the score: %v vs %v", s.Pearson, clean.Pearson)
	}
}

func TestDaySignalLeadingSignal(t *testing.T) {
	// The asset price follows the earlier ratio deviation one minute later.
	n := 40
	bars := make([]models.MinuteBar, n)
	px := 100.0
	for i := range bars {
		dev := math.Sin(float64(i))
		bars[i] = models.MinuteBar{AssetClose: px, AssetVolume: 10, BenchmarkClose: px * (1 + 0.01*dev)}
		px *= 1 + 0.001*dev
	}
	s := DaySignal(bars, 1, 1)
	if s.Samples != n-1 {
		t.Fatalf("expected %d samples, got %d", n-1, s.Samples)
	}
	if !(s.Pearson > 0.9) || !(s.Confidence > 90) {
		t.Fatalf("expected strong positive score, got %+v", s)
	}
	if empty := DaySignal(nil, 1, 10); empty.Samples != 0 || empty.Confidence != 0 {
		t.Fatalf("expected empty score, got %+v", empty)
	}
}
