package features

import (
	"math"
	"sort"
)

// Finite returns the finite values of xs in their original order.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// Mean is the arithmetic mean of the finite values, NaN if there are none.
func Mean(xs []float64) float64 {
	sum := 0.0
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std is the population standard deviation (ddof=0) of the finite values.
func Std(xs []float64) float64 {
	m := Mean(xs)
	if math.IsNaN(m) {
		return math.NaN()
	}
	ss := 0.0
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		d := x - m
		ss += d * d
		n++
	}
	return math.Sqrt(ss / float64(n))
}

// Percentiles returns the q-th percentiles (0..100) of the finite values, interpolating
// linearly between closest ranks. ok is false when there are no finite values.
func Percentiles(xs []float64, qs ...float64) ([]float64, bool) {
	s := Finite(xs)
	if len(s) == 0 {
		return nil, false
	}
	sort.Float64s(s)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = percentileSorted(s, q)
	}
	return out, true
}

// Percentile is Percentiles for a single q; NaN when there are no finite values.
func Percentile(xs []float64, q float64) float64 {
	p, ok := Percentiles(xs, q)
	if !ok {
		return math.NaN()
	}
	return p[0]
}

// Median is the 50th percentile.
func Median(xs []float64) float64 {
	return Percentile(xs, 50)
}

func percentileSorted(s []float64, q float64) float64 {
	if q <= 0 {
		return s[0]
	}
	if q >= 100 {
		return s[len(s)-1]
	}
	pos := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}
