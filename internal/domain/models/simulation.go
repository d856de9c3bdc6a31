package models

import "time"

// PositionState is FLAT or LONG; the simulator never goes short.
type PositionState string

const (
	Flat PositionState = "FLAT"
	Long PositionState = "LONG"
)

// Position is the simulator's open exposure.
type Position struct {
	State      PositionState `json:"state"`
	EntryTime  time.Time     `json:"entry_time"`
	EntryPrice float64       `json:"entry_price"`
	Shares     int64         `json:"shares"`
}

// Trade is a closed round trip.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	Shares     int64     `json:"shares"`
	ReturnPct  float64   `json:"return_pct"`
}

// FillAction labels a fill log entry.
type FillAction string

const (
	ActionBuy     FillAction = "BUY"
	ActionSell    FillAction = "SELL"
	ActionFlatten FillAction = "FLATTEN"
	ActionMark    FillAction = "MARK"
)

// Fill is one line of the optional per-trade log.
type Fill struct {
	Symbol   string     `json:"symbol"`
	Date     string     `json:"date"`
	Time     string     `json:"time"`
	Session  Session    `json:"session"`
	Action   FillAction `json:"action"`
	Price    float64    `json:"price"`
	Ratio    float64    `json:"ratio"`
	Baseline float64    `json:"baseline"`
	Shares   int64      `json:"shares"`
	BuyPct   float64    `json:"buy_pct"`
	SellPct  float64    `json:"sell_pct"`
	Method   Method     `json:"method"`
}

// DayReturn is one day's equity change inside a simulation.
type DayReturn struct {
	Date        time.Time `json:"date"`
	EquityStart float64   `json:"equity_start"`
	EquityEnd   float64   `json:"equity_end"`
	Return      float64   `json:"return"`
	Buys        int       `json:"buys"`
	Sells       int       `json:"sells"`
}

// SimulationResult is built once per (method, buy, sell) run and read-only afterwards.
type SimulationResult struct {
	Symbol       string      `json:"symbol"`
	From         time.Time   `json:"from"`
	To           time.Time   `json:"to"`
	Method       Method      `json:"method"`
	BuyPct       float64     `json:"buy_pct"`
	SellPct      float64     `json:"sell_pct"`
	Trades       []Trade     `json:"trades"`
	TradeCount   int         `json:"trade_count"`
	EndingCash   float64     `json:"ending_cash"`
	EndingShares int64       `json:"ending_shares"`
	LastPrice    float64     `json:"last_price"`
	FinalEquity  float64     `json:"final_equity"`
	TotalReturn  float64     `json:"total_return"`
	DaysUsed     int         `json:"days_used"`
	DayReturns   []DayReturn `json:"day_returns,omitempty"`
	Fills        []Fill      `json:"fills,omitempty"`
}
