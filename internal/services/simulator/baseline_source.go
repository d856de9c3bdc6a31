package simulator

import (
	"math"
	"time"

	"RatioLab/internal/domain/models"
)

// BaselineSource yields the baseline in force on a local date.
type BaselineSource interface {
	BaselineFor(date time.Time) (float64, bool)
}

// Scalar applies one baseline to every day. A non-finite value is undefined everywhere.
type Scalar float64

func (s Scalar) BaselineFor(time.Time) (float64, bool) {
	v := float64(s)
	return v, !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PerDay maps YYYY-MM-DD to that day's baseline. Missing days are undefined.
type PerDay map[string]float64

func (p PerDay) BaselineFor(date time.Time) (float64, bool) {
	v, ok := p[date.Format(models.DateLayout)]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

// Set records a baseline for date.
func (p PerDay) Set(date time.Time, v float64) {
	p[date.Format(models.DateLayout)] = v
}
