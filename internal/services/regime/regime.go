// Package regime bins continuous per-day features into discrete buckets.
package regime

import (
	"fmt"
	"sort"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/features"
)

// QuantileEdges returns k+1 cut points at evenly spaced percentiles of the finite values.
func QuantileEdges(values []float64, k int) ([]float64, error) {
	if k < 1 {
		return nil, models.NewConfigError("bins", "must be >= 1, got %d", k)
	}
	if len(features.Finite(values)) < 2 {
		return nil, fmt.Errorf("quantile edges: %w", models.ErrInsufficientData)
	}
	qs := make([]float64, k+1)
	for i := range qs {
		qs[i] = 100 * float64(i) / float64(k)
	}
	edges, _ := features.Percentiles(values, qs...)
	return edges, nil
}

// Assign places v in [0, k-1] where k = len(edges)-1. Values outside the edges clamp to the
// first or last bin; values equal to an interior edge go to the upper bin.
func Assign(edges []float64, v float64) int {
	k := len(edges) - 1
	if k < 1 {
		return 0
	}
	idx := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
	if idx < 0 {
		return 0
	}
	if idx > k-1 {
		return k - 1
	}
	return idx
}

// TrainEdges computes edges per field from training features only. Fields without enough
// finite training values are left out, so days keyed on them never match a rule.
func TrainEdges(train []models.RegimeFeatures, fields []models.RegimeField, k int) (models.BinEdges, error) {
	edges := make(models.BinEdges, len(fields))
	for _, f := range fields {
		vals := make([]float64, 0, len(train))
		for _, r := range train {
			if v, ok := r.Value(f); ok {
				vals = append(vals, v)
			}
		}
		e, err := QuantileEdges(vals, k)
		if err != nil {
			if models.IsInsufficient(err) {
				continue
			}
			return nil, err
		}
		edges[f] = e
	}
	return edges, nil
}

// Key bins one day's features. ok is false when any field is missing a value or edges.
func Key(r models.RegimeFeatures, fields []models.RegimeField, edges models.BinEdges) (models.RegimeKey, bool) {
	bins := make([]models.RegimeBin, 0, len(fields))
	for _, f := range fields {
		e, ok := edges[f]
		if !ok {
			return models.RegimeKey{}, false
		}
		v, ok := r.Value(f)
		if !ok {
			return models.RegimeKey{}, false
		}
		bins = append(bins, models.RegimeBin{Field: f, Bin: Assign(e, v)})
	}
	return models.NewRegimeKey(bins...), true
}

// ModalKey bins every observation and takes the most frequent bin per field. Ties go to
// the smaller bin.
func ModalKey(obs []models.RegimeFeatures, fields []models.RegimeField, edges models.BinEdges) (models.RegimeKey, bool) {
	bins := make([]models.RegimeBin, 0, len(fields))
	for _, f := range fields {
		e, ok := edges[f]
		if !ok {
			return models.RegimeKey{}, false
		}
		counts := map[int]int{}
		for _, r := range obs {
			if v, ok := r.Value(f); ok {
				counts[Assign(e, v)]++
			}
		}
		if len(counts) == 0 {
			return models.RegimeKey{}, false
		}
		best, bestN := 0, -1
		for b, n := range counts {
			if n > bestN || (n == bestN && b < best) {
				best, bestN = b, n
			}
		}
		bins = append(bins, models.RegimeBin{Field: f, Bin: best})
	}
	return models.NewRegimeKey(bins...), true
}
