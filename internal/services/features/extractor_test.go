package features

import (
	"math"
	"testing"

	"RatioLab/internal/domain/models"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestPercentileLinear(t *testing.T) {
	xs := []float64{10, 20, 30, 40, math.NaN()}
	if got := Percentile(xs, 50); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := Percentile(xs, 0); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if !math.IsNaN(Percentile(nil, 50)) {
		t.Fatalf("expected NaN for empty input")
	}
}

func TestStdPopulation(t *testing.T) {
	if got := Std([]float64{2, 4, 4, 4, 5, 5, 7, 9}); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestRegimeFeatures(t *testing.T) {
	prev := []models.MinuteBar{
		{AssetClose: 10, AssetVolume: 100, BenchmarkClose: 100},
		{AssetClose: 11, AssetVolume: 300, BenchmarkClose: 110},
		{AssetClose: 10, AssetVolume: 200, BenchmarkClose: 105},
	}
	cur := []models.MinuteBar{
		{AssetClose: 10.5, AssetVolume: 1, BenchmarkClose: 126},
	}
	f := RegimeFeatures(prev, cur)
	if !near(f.BenchPrevRet, 0.05) {
		t.Fatalf("prev ret %v", f.BenchPrevRet)
	}
	if !near(f.BenchPrevRange, 10.0/105) {
		t.Fatalf("prev range %v", f.BenchPrevRange)
	}
	if !near(f.BenchOvernightRet, 0.2) {
		t.Fatalf("overnight %v", f.BenchOvernightRet)
	}
	if f.LiqMedian != 2000 {
		t.Fatalf("liq median %v", f.LiqMedian)
	}
	if _, ok := f.Value(models.FieldOpenGapZ); !ok {
		t.Fatalf("expected open gap z")
	}
}

func TestRegimeFeaturesWithoutHistory(t *testing.T) {
	f := RegimeFeatures(nil, []models.MinuteBar{{AssetClose: 1, BenchmarkClose: 1}})
	for _, field := range models.AllRegimeFields() {
		if _, ok := f.Value(field); ok {
			t.Fatalf("%s should be missing", field)
		}
	}
}
