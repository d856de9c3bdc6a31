package usecase

import (
	"context"
	"fmt"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/baseline"
	"RatioLab/internal/services/simulator"
)

// maxPadRounds bounds how often the history lookup widens its calendar window.
const maxPadRounds = 4

// tradingDay is one local date's bars after the scope's filters.
type tradingDay struct {
	date time.Time
	// bars are the window bars the simulator trades, after the trigger liquidity filter.
	bars []models.MinuteBar
	// baseBars feed the baselines of later days, after the baseline liquidity filter.
	baseBars []models.MinuteBar
}

// dataset is a symbol's trading days from Lookback days before the range through its end.
// It is loaded once per run and shared read-only by every cell.
type dataset struct {
	symbol   string
	lookback int
	days     []tradingDay
	// first is the index of the first day inside the requested range.
	first int
}

// testDays returns the days inside the requested range.
func (d *dataset) testDays() []tradingDay {
	return d.days[d.first:]
}

// history returns the Lookback days preceding day i, or false when there are fewer.
func (d *dataset) history(i int) ([]tradingDay, bool) {
	if i < d.lookback {
		return nil, false
	}
	return d.days[i-d.lookback : i], true
}

// baselineFor estimates day i's baseline from its history, restricted to bars keep accepts.
func (d *dataset) baselineFor(i int, method models.Method, opts baseline.Options, keep func(models.MinuteBar) bool) (baseline.Result, bool) {
	hist, ok := d.history(i)
	if !ok {
		return baseline.Result{}, false
	}
	var rows []models.MinuteBar
	for _, h := range hist {
		for _, b := range h.baseBars {
			if keep == nil || keep(b) {
				rows = append(rows, b)
			}
		}
	}
	return baseline.Compute(rows, method, opts), true
}

// dayBaselines holds one method's baseline for every test day, by test-day offset.
type dayBaselines struct {
	results []baseline.Result
	// history is false where the day had fewer than Lookback prior days.
	history []bool
}

// perDay converts the defined baselines into a simulator source.
func (b dayBaselines) perDay(days []tradingDay) simulator.PerDay {
	src := simulator.PerDay{}
	for i, d := range days {
		if b.history[i] && b.results[i].Defined {
			src.Set(d.date, b.results[i].Value)
		}
	}
	return src
}

// baselines computes every method's baseline on every test day.
func (d *dataset) baselines(methods []models.Method, opts baseline.Options, keep func(models.MinuteBar) bool) map[models.Method]dayBaselines {
	out := make(map[models.Method]dayBaselines, len(methods))
	n := len(d.days) - d.first
	for _, m := range methods {
		db := dayBaselines{results: make([]baseline.Result, n), history: make([]bool, n)}
		for j := 0; j < n; j++ {
			db.results[j], db.history[j] = d.baselineFor(d.first+j, m, opts, keep)
		}
		out[m] = db
	}
	return out
}

// bars concatenates the test days' trading bars in timestamp order.
func (d *dataset) bars() []models.MinuteBar {
	var out []models.MinuteBar
	for _, day := range d.testDays() {
		out = append(out, day.bars...)
	}
	return out
}

// load reads the scope's range plus enough earlier trading days to cover the lookback.
// The calendar window is widened until Lookback prior days are found or the feed runs out.
func (b *Backtester) load(ctx context.Context, s Scope) (*dataset, error) {
	pad := s.Lookback*2 + 7
	var days []time.Time
	for round := 0; ; round++ {
		start := s.From.AddDate(0, 0, -pad)
		var err error
		days, err = b.feed.TradingDays(ctx, s.Symbol, start, s.To)
		if err != nil {
			return nil, fmt.Errorf("trading days %s: %w", s.Symbol, err)
		}
		if countBefore(days, s.From) >= s.Lookback || round+1 >= maxPadRounds {
			break
		}
		pad *= 2
	}

	first := countBefore(days, s.From)
	if first > s.Lookback {
		days = days[first-s.Lookback:]
		first = s.Lookback
	}
	ds := &dataset{symbol: s.Symbol, lookback: s.Lookback, first: first}
	if len(days) == 0 {
		return ds, nil
	}

	bars, err := b.feed.GetMinutes(ctx, s.Symbol, days[0], s.To)
	if err != nil {
		return nil, fmt.Errorf("minutes %s: %w", s.Symbol, err)
	}
	trig := s.triggerLiquidity()
	base := s.baselineLiquidity()
	byDate := make(map[string][]models.MinuteBar, len(days))
	for _, g := range models.GroupByDay(bars) {
		k := g.Date.Format(models.DateLayout)
		byDate[k] = append(byDate[k], g.Bars...)
	}
	for _, d := range days {
		win := s.Window.Filter(byDate[d.Format(models.DateLayout)])
		ds.days = append(ds.days, tradingDay{
			date:     d,
			bars:     trig.Filter(win),
			baseBars: base.Filter(win),
		})
	}
	return ds, nil
}

// countBefore counts the sorted dates strictly before d.
func countBefore(days []time.Time, d time.Time) int {
	n := 0
	for _, x := range days {
		if x.Before(d) {
			n++
		}
	}
	return n
}

// sessionFilter keeps the bars of one session.
func sessionFilter(s models.Session) func(models.MinuteBar) bool {
	return func(b models.MinuteBar) bool { return b.Session == s }
}
