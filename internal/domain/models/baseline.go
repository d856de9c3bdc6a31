package models

import (
	"strings"
	"time"
)

// Method selects a baseline estimator.
type Method string

const (
	MethodVWAPRatio      Method = "VWAP_RATIO"
	MethodVolWeighted    Method = "VOL_WEIGHTED"
	MethodWinsorized     Method = "WINSORIZED"
	MethodWeightedMedian Method = "WEIGHTED_MEDIAN"
	MethodEqualMean      Method = "EQUAL_MEAN"
)

// AllMethods lists every estimator in a fixed order.
func AllMethods() []Method {
	return []Method{MethodVWAPRatio, MethodVolWeighted, MethodWinsorized, MethodWeightedMedian, MethodEqualMean}
}

// ParseMethod accepts any casing of a known method name.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllMethods() {
		if m == known {
			return m, nil
		}
	}
	return "", NewConfigError("method", "unknown baseline method %q", s)
}

// ParseMethods parses a list, rejecting empties and duplicates.
func ParseMethods(in []string) ([]Method, error) {
	if len(in) == 0 {
		return nil, NewConfigError("methods", "at least one method is required")
	}
	seen := make(map[Method]bool, len(in))
	out := make([]Method, 0, len(in))
	for _, s := range in {
		m, err := ParseMethod(s)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}

// Baseline is a reference ratio computed strictly from days before AsOfDate.
type Baseline struct {
	Symbol       string    `json:"symbol"`
	AsOfDate     time.Time `json:"as_of_date"`
	Method       Method    `json:"method"`
	Value        float64   `json:"value"`
	Defined      bool      `json:"defined"`
	LookbackDays int       `json:"lookback_days"`
	SampleCount  int       `json:"sample_count"`
	Session      string    `json:"session,omitempty"`
}
