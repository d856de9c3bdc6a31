package models

import "time"

// LeaderboardRow is one grid cell's outcome.
type LeaderboardRow struct {
	Symbol       string  `json:"symbol"`
	Method       Method  `json:"method"`
	BuyPct       float64 `json:"buy_pct"`
	SellPct      float64 `json:"sell_pct"`
	TotalReturn  float64 `json:"total_return"`
	TradeCount   int     `json:"trade_count"`
	DaysUsed     int     `json:"days_used"`
	EndingShares int64   `json:"ending_shares"`
	FinalCash    float64 `json:"final_cash"`
	FinalEquity  float64 `json:"final_equity"`
}

// Leaderboard is a ranked grid result.
type Leaderboard struct {
	RunID              string           `json:"run_id"`
	Symbol             string           `json:"symbol"`
	From               time.Time        `json:"from"`
	To                 time.Time        `json:"to"`
	Rows               []LeaderboardRow `json:"rows"`
	Fills              []Fill           `json:"fills,omitempty"`
	UndefinedBaselines int              `json:"undefined_baselines"`
	SkippedDays        int              `json:"skipped_days"`
}

// OracleDay is the single best action for one day evaluated in isolation.
type OracleDay struct {
	Date       time.Time `json:"date"`
	Symbol     string    `json:"symbol"`
	Method     Method    `json:"method"`
	BuyPct     float64   `json:"buy_pct"`
	SellPct    float64   `json:"sell_pct"`
	TradeCount int       `json:"trade_count"`
	DayReturn  float64   `json:"day_return"`
	Baseline   float64   `json:"baseline"`
	Samples    int       `json:"samples"`
	Pearson    *float64  `json:"corr_pearson,omitempty"`
	Spearman   *float64  `json:"corr_spearman,omitempty"`
	Confidence float64   `json:"confidence"`
}

// OracleSummary aggregates oracle days per method.
type OracleSummary struct {
	Symbol        string  `json:"symbol"`
	Method        Method  `json:"method"`
	DaysWon       int     `json:"days_won"`
	AvgReturn     float64 `json:"avg_day_return"`
	MedianReturn  float64 `json:"med_day_return"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// CurvePoint is one day of a single-pair equity curve.
type CurvePoint struct {
	Date        time.Time `json:"date"`
	EquityStart float64   `json:"equity_start"`
	EquityEnd   float64   `json:"equity_end"`
	DayReturn   float64   `json:"day_return"`
	CumReturn   float64   `json:"cum_return"`
	Trades      int       `json:"trades"`
	Buys        int       `json:"buys"`
	Sells       int       `json:"sells"`
}

// DailyAction is the stored outcome of one (method, buy, sell) on one isolated day.
// The walk-forward policy selects among these rows and never resimulates.
type DailyAction struct {
	Date       time.Time      `json:"date"`
	Symbol     string         `json:"symbol"`
	Session    string         `json:"session"`
	Method     Method         `json:"method"`
	BuyPct     float64        `json:"buy_pct"`
	SellPct    float64        `json:"sell_pct"`
	DayReturn  float64        `json:"day_return"`
	TradeCount int            `json:"trade_count"`
	Baseline   float64        `json:"baseline"`
	Confidence float64        `json:"confidence"`
	Features   RegimeFeatures `json:"features"`
}

// ActionID identifies a (method, buy, sell) triple.
type ActionID struct {
	Method  Method  `json:"method"`
	BuyPct  float64 `json:"buy_pct"`
	SellPct float64 `json:"sell_pct"`
}

// Action returns the row's action identity.
func (a DailyAction) Action() ActionID {
	return ActionID{Method: a.Method, BuyPct: a.BuyPct, SellPct: a.SellPct}
}

// Less orders actions by method, then buy, then sell.
func (a ActionID) Less(o ActionID) bool {
	if a.Method != o.Method {
		return a.Method < o.Method
	}
	if a.BuyPct != o.BuyPct {
		return a.BuyPct < o.BuyPct
	}
	return a.SellPct < o.SellPct
}
