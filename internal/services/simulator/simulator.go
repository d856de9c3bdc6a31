// Package simulator walks minute bars through the long-only threshold state machine.
package simulator

import (
	"math"

	"RatioLab/internal/domain/models"
)

// thresholdTolerance lets a ratio equal to a threshold up to rounding still cross it.
const thresholdTolerance = 1e-12

// DayMode controls what happens to an open position at each day boundary.
type DayMode int

const (
	// Carry keeps cash and shares across days.
	Carry DayMode = iota
	// FlattenDaily liquidates at each day's last valid price.
	FlattenDaily
)

// Thresholds are percentage deviations from the baseline.
type Thresholds struct {
	BuyPct  float64
	SellPct float64
}

func (t Thresholds) validate(prefix string) error {
	if t.BuyPct < 0 || math.IsNaN(t.BuyPct) {
		return models.NewConfigError(prefix+"buy_pct", "must be >= 0, got %g", t.BuyPct)
	}
	if t.SellPct < 0 || t.SellPct >= 100 || math.IsNaN(t.SellPct) {
		return models.NewConfigError(prefix+"sell_pct", "must be in [0, 100), got %g", t.SellPct)
	}
	return nil
}

// Params configures one simulation run.
type Params struct {
	Symbol string
	Method models.Method
	Thresholds
	StartingCash float64
	// ParticipationCapPct caps a buy at this percentage of the bar's volume. Zero disables it.
	ParticipationCapPct float64
	// FlattenAtEnd liquidates any open position at the window's last valid price.
	FlattenAtEnd bool
	Mode         DayMode
	Log          bool
}

// Validate rejects parameters that cannot produce a meaningful run.
func (p Params) Validate() error {
	if err := p.Thresholds.validate(""); err != nil {
		return err
	}
	if !(p.StartingCash > 0) || math.IsInf(p.StartingCash, 0) {
		return models.NewConfigError("starting_cash", "must be > 0, got %g", p.StartingCash)
	}
	if p.ParticipationCapPct < 0 || p.ParticipationCapPct > 100 {
		return models.NewConfigError("participation_cap_pct", "must be in [0, 100], got %g", p.ParticipationCapPct)
	}
	return nil
}

// leg is the baseline and thresholds applied to one session.
type leg struct {
	base BaselineSource
	th   Thresholds
}

// Simulate runs bars against a single baseline source and threshold pair.
func Simulate(bars []models.MinuteBar, base BaselineSource, p Params) models.SimulationResult {
	l := leg{base: base, th: p.Thresholds}
	return run(bars, func(models.Session) leg { return l }, p)
}

// SimulateSplit uses separate baselines and thresholds for RTH and AH bars.
func SimulateSplit(bars []models.MinuteBar, rthBase, ahBase BaselineSource, rth, ah Thresholds, p Params) models.SimulationResult {
	r := leg{base: rthBase, th: rth}
	a := leg{base: ahBase, th: ah}
	return run(bars, func(s models.Session) leg {
		if s == models.SessionAH {
			return a
		}
		return r
	}, p)
}

// ValidateSplit checks both session threshold pairs.
func ValidateSplit(rth, ah Thresholds) error {
	if err := rth.validate("rth_"); err != nil {
		return err
	}
	return ah.validate("ah_")
}

func run(bars []models.MinuteBar, legFor func(models.Session) leg, p Params) models.SimulationResult {
	b := newBook(p)
	days := models.GroupByDay(bars)
	used := 0

	for _, day := range days {
		start := b.equity()
		buys, sells := b.buys, b.sells
		defined := false

		for _, bar := range day.Bars {
			if !bar.Tradable() {
				continue
			}
			r, ok := bar.Ratio()
			if !ok {
				continue
			}
			b.lastPrice = bar.AssetClose
			b.lastBar = bar

			l := legFor(bar.Session)
			base, ok := l.base.BaselineFor(day.Date)
			if !ok {
				continue
			}
			defined = true
			buyThr := base * (1 + l.th.BuyPct/100)
			sellThr := base * (1 - l.th.SellPct/100)

			switch {
			case b.shares == 0 && b.cash > 0 && r >= buyThr*(1-thresholdTolerance):
				b.buy(bar, r, base, l.th)
			case b.shares > 0 && r <= sellThr*(1+thresholdTolerance):
				b.sell(bar, r, base, l.th, models.ActionSell)
			}
		}

		if p.Mode == FlattenDaily && b.shares > 0 {
			b.flatten()
		}
		if defined {
			used++
		}
		if len(day.Bars) > 0 {
			end := b.equity()
			ret := math.NaN()
			if start > 0 {
				ret = end/start - 1
			}
			b.dayReturns = append(b.dayReturns, models.DayReturn{
				Date:        day.Date,
				EquityStart: start,
				EquityEnd:   end,
				Return:      ret,
				Buys:        b.buys - buys,
				Sells:       b.sells - sells,
			})
		}
	}

	if p.FlattenAtEnd && b.shares > 0 {
		b.flatten()
	}
	b.mark()

	res := models.SimulationResult{
		Symbol:       p.Symbol,
		Method:       p.Method,
		BuyPct:       p.BuyPct,
		SellPct:      p.SellPct,
		Trades:       b.trades,
		TradeCount:   b.buys + b.sells,
		EndingCash:   b.cash,
		EndingShares: b.shares,
		LastPrice:    b.lastPrice,
		FinalEquity:  b.equity(),
		DaysUsed:     used,
		DayReturns:   b.dayReturns,
		Fills:        b.fills,
	}
	if len(days) > 0 {
		res.From = days[0].Date
		res.To = days[len(days)-1].Date
	}
	res.TotalReturn = math.NaN()
	if used > 0 {
		res.TotalReturn = res.FinalEquity/p.StartingCash - 1
	}
	return res
}
