package models

import "time"

// BinEdges maps each regime field to its k+1 ascending quantile cut points.
type BinEdges map[RegimeField][]float64

// PolicyRule is the best training action for one regime bucket.
type PolicyRule struct {
	Key            RegimeKey `json:"key"`
	Method         Method    `json:"method"`
	BuyPct         float64   `json:"buy_pct"`
	SellPct        float64   `json:"sell_pct"`
	AvgReturn      float64   `json:"avg_return"`
	Support        int       `json:"support"`
	MeanConfidence float64   `json:"mean_confidence"`
	SharpeLike     float64   `json:"sharpe_like"`
}

// Action returns the rule's action identity.
func (r PolicyRule) Action() ActionID {
	return ActionID{Method: r.Method, BuyPct: r.BuyPct, SellPct: r.SellPct}
}

// RuleTable is a trained regime → action table together with the edges used to bin.
type RuleTable struct {
	Symbol    string        `json:"symbol"`
	TrainFrom time.Time     `json:"train_from"`
	TrainTo   time.Time     `json:"train_to"`
	Fields    []RegimeField `json:"fields"`
	Bins      int           `json:"bins"`
	Edges     BinEdges      `json:"edges"`
	Rules     []PolicyRule  `json:"rules"`
}

// Lookup finds the rule for a key.
func (t RuleTable) Lookup(k RegimeKey) (PolicyRule, bool) {
	for _, r := range t.Rules {
		if r.Key == k {
			return r, true
		}
	}
	return PolicyRule{}, false
}

// PolicyDecision is one walk-forward test day.
type PolicyDecision struct {
	Date      time.Time   `json:"date"`
	Key       RegimeKey   `json:"key"`
	Rule      *PolicyRule `json:"rule,omitempty"`
	DayReturn float64     `json:"day_return"`
	Resolved  bool        `json:"resolved"`
	Reason    string      `json:"reason,omitempty"`
}

// EquityPoint is one day of an equity series.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// DatedReturn is one resolved day's return.
type DatedReturn struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// WalkForwardResult is the outcome of a walk-forward evaluation.
type WalkForwardResult struct {
	RunID            string           `json:"run_id"`
	Symbol           string           `json:"symbol"`
	StartCapital     float64          `json:"start_capital"`
	Decisions        []PolicyDecision `json:"decisions"`
	DailyReturns     []DatedReturn    `json:"daily_returns"`
	Equity           []EquityPoint    `json:"equity"`
	DaysWithNoAction []time.Time      `json:"days_with_no_action"`
	FinalEquity      float64          `json:"final_equity"`
	TotalReturn      float64          `json:"total_return"`
	SharpeLike       float64          `json:"sharpe_like"`
	MaxDrawdown      float64          `json:"max_drawdown"`
}
