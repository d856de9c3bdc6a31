package util

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FloatRange returns min, min+step, ... up to and including max. Values are built in
// decimal so 0.1 steps do not drift. A non-positive step or max < min yields nil.
func FloatRange(min, max, step float64) []float64 {
	if !(step > 0) || max < min || math.IsInf(max, 0) || math.IsNaN(min) {
		return nil
	}
	hi := decimal.NewFromFloat(max)
	st := decimal.NewFromFloat(step)

	var out []float64
	for v := decimal.NewFromFloat(min); v.LessThanOrEqual(hi); v = v.Add(st) {
		f, _ := v.Float64()
		out = append(out, f)
	}
	return out
}

// RoundMoney rounds to cents, half away from zero. NaN and Inf pass through.
func RoundMoney(v float64) float64 {
	return RoundPlaces(v, 2)
}

// RoundPlaces rounds v to places decimal digits, half away from zero.
func RoundPlaces(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// FiniteOr returns v, or def when v is NaN or Inf.
func FiniteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
