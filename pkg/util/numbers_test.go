package util

import (
	"math"
	"testing"
)

func TestFloatRange(t *testing.T) {
	tests := []struct {
		name           string
		min, max, step float64
		want           []float64
	}{
		{"halves", 0, 2, 0.5, []float64{0, 0.5, 1, 1.5, 2}},
		{"tenths do not drift", 0.1, 0.3, 0.1, []float64{0.1, 0.2, 0.3}},
		{"single", 1, 1, 0.5, []float64{1}},
		{"max off grid", 0, 1.2, 0.5, []float64{0, 0.5, 1}},
		{"bad step", 0, 1, 0, nil},
		{"reversed", 2, 1, 0.5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloatRange(tt.min, tt.max, tt.step)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRoundMoney(t *testing.T) {
	if got := RoundMoney(10.005); got != 10.01 {
		t.Fatalf("expected 10.01, got %v", got)
	}
	if got := RoundMoney(-1.234); got != -1.23 {
		t.Fatalf("expected -1.23, got %v", got)
	}
	if !math.IsNaN(RoundMoney(math.NaN())) {
		t.Fatalf("NaN must pass through")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, ,b,c ")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected %v", got)
	}
	if SplitList("") != nil {
		t.Fatalf("expected nil for empty")
	}
}
