package policy

import (
	"math"

	"RatioLab/internal/services/features"
)

// SharpeLike is mean/std of the finite returns, 0 when std is 0 or undefined.
func SharpeLike(returns []float64) float64 {
	sd := features.Std(returns)
	if !(sd > 0) {
		return 0
	}
	return features.Mean(returns) / sd
}

// DrawdownStats summarizes an equity series.
type DrawdownStats struct {
	MaxDrawdown float64 `json:"max_drawdown"` // most negative eq/peak - 1
	AvgDrawdown float64 `json:"avg_drawdown"`
	CalmarLike  float64 `json:"calmar_like"`
}

// Drawdown computes drawdown statistics. Calmar-like is total return over |max drawdown|.
func Drawdown(equity []float64) DrawdownStats {
	var st DrawdownStats
	if len(equity) == 0 {
		return st
	}
	peak := math.Inf(-1)
	sum := 0.0
	for _, e := range equity {
		peak = math.Max(peak, e)
		dd := 0.0
		if peak > 0 {
			dd = e/peak - 1
		}
		st.MaxDrawdown = math.Min(st.MaxDrawdown, dd)
		sum += dd
	}
	st.AvgDrawdown = sum / float64(len(equity))
	if st.MaxDrawdown < 0 && equity[0] > 0 {
		st.CalmarLike = (equity[len(equity)-1]/equity[0] - 1) / math.Abs(st.MaxDrawdown)
	}
	return st
}

// Costs model per-trade friction.
type Costs struct {
	Commission float64 // per trade, in currency
	Capital    float64
	SpreadBps  float64
	SlipBps    float64
}

// PerTrade is the fractional cost of one trade.
func (c Costs) PerTrade() float64 {
	per := (c.SpreadBps + c.SlipBps) / 10000
	if c.Capital > 0 {
		per += c.Commission / c.Capital
	}
	return per
}

// Apply subtracts trades × PerTrade from a return.
func (c Costs) Apply(ret float64, trades int) float64 {
	return ret - float64(trades)*c.PerTrade()
}

// Zero reports whether the model charges nothing.
func (c Costs) Zero() bool { return c.PerTrade() == 0 }
