// Package policy selects a (method, buy, sell) action per regime bucket from trailing
// training windows and evaluates it out of sample.
package policy

import (
	"math"
	"sort"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/regime"
)

// Gap reasons recorded on unresolved decisions.
const (
	ReasonNoRegime    = "no_regime"
	ReasonNoRule      = "no_rule"
	ReasonNoActionRow = "no_action_row"
)

// Config drives rule training.
type Config struct {
	Fields          []models.RegimeField
	Bins            int
	TrainWindowDays int
	StartCapital    float64
	MinSupport      int
	// MinConfidence filters groups by mean confidence when > 0.
	MinConfidence float64
	// MinSharpe filters groups by sharpe-like when set.
	MinSharpe *float64
}

// Validate rejects configurations that cannot train.
func (c Config) Validate() error {
	if len(c.Fields) == 0 {
		return models.NewConfigError("regime_fields", "at least one field is required")
	}
	if c.Bins < 1 {
		return models.NewConfigError("regime_bins", "must be >= 1, got %d", c.Bins)
	}
	if c.TrainWindowDays < 1 {
		return models.NewConfigError("train_window_days", "must be >= 1, got %d", c.TrainWindowDays)
	}
	if !(c.StartCapital > 0) {
		return models.NewConfigError("start_capital", "must be > 0, got %g", c.StartCapital)
	}
	if c.MinSupport < 0 {
		return models.NewConfigError("min_support", "must be >= 0, got %d", c.MinSupport)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return models.NewConfigError("min_confidence", "must be in [0, 100], got %g", c.MinConfidence)
	}
	return nil
}

// history indexes actions by day.
type history struct {
	dates []time.Time
	byDay map[time.Time][]models.DailyAction
}

func index(actions []models.DailyAction) history {
	h := history{byDay: make(map[time.Time][]models.DailyAction)}
	for _, a := range actions {
		d := dayOf(a.Date)
		if _, ok := h.byDay[d]; !ok {
			h.dates = append(h.dates, d)
		}
		h.byDay[d] = append(h.byDay[d], a)
	}
	sort.Slice(h.dates, func(i, j int) bool { return h.dates[i].Before(h.dates[j]) })
	return h
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (h history) rows(dates []time.Time) []models.DailyAction {
	var out []models.DailyAction
	for _, d := range dates {
		out = append(out, h.byDay[d]...)
	}
	return out
}

// dayFeatures takes one feature vector per day, from the day's first row.
func (h history) dayFeatures(dates []time.Time) []models.RegimeFeatures {
	out := make([]models.RegimeFeatures, 0, len(dates))
	for _, d := range dates {
		if rows := h.byDay[d]; len(rows) > 0 {
			out = append(out, rows[0].Features)
		}
	}
	return out
}

type group struct {
	key     models.RegimeKey
	action  models.ActionID
	returns []float64
	confSum float64
}

// train builds a rule table from the given training days only.
func train(h history, dates []time.Time, cfg Config) (models.RuleTable, error) {
	table := models.RuleTable{Fields: cfg.Fields, Bins: cfg.Bins}
	if len(dates) > 0 {
		table.TrainFrom = dates[0]
		table.TrainTo = dates[len(dates)-1]
	}
	edges, err := regime.TrainEdges(h.dayFeatures(dates), cfg.Fields, cfg.Bins)
	if err != nil {
		return table, err
	}
	table.Edges = edges

	type gk struct {
		key    models.RegimeKey
		action models.ActionID
	}
	groups := map[gk]*group{}
	for _, row := range h.rows(dates) {
		if math.IsNaN(row.DayReturn) || math.IsInf(row.DayReturn, 0) {
			continue
		}
		key, ok := regime.Key(row.Features, cfg.Fields, edges)
		if !ok {
			continue
		}
		id := gk{key, row.Action()}
		g := groups[id]
		if g == nil {
			g = &group{key: key, action: id.action}
			groups[id] = g
		}
		g.returns = append(g.returns, row.DayReturn)
		g.confSum += row.Confidence
	}

	minSupport := cfg.MinSupport
	if minSupport < 1 {
		minSupport = 1
	}
	best := map[models.RegimeKey]models.PolicyRule{}
	for _, g := range groups {
		n := len(g.returns)
		if n < minSupport {
			continue
		}
		rule := models.PolicyRule{
			Key:            g.key,
			Method:         g.action.Method,
			BuyPct:         g.action.BuyPct,
			SellPct:        g.action.SellPct,
			AvgReturn:      mean(g.returns),
			Support:        n,
			MeanConfidence: g.confSum / float64(n),
			SharpeLike:     SharpeLike(g.returns),
		}
		if cfg.MinConfidence > 0 && rule.MeanConfidence < cfg.MinConfidence {
			continue
		}
		if cfg.MinSharpe != nil && rule.SharpeLike < *cfg.MinSharpe {
			continue
		}
		if cur, ok := best[g.key]; !ok || better(rule, cur) {
			best[g.key] = rule
		}
	}

	for _, r := range best {
		table.Rules = append(table.Rules, r)
	}
	sort.Slice(table.Rules, func(i, j int) bool {
		return table.Rules[i].Key.String() < table.Rules[j].Key.String()
	})
	return table, nil
}

// better orders by average return desc, support desc, then action ascending.
func better(a, b models.PolicyRule) bool {
	if a.AvgReturn != b.AvgReturn {
		return a.AvgReturn > b.AvgReturn
	}
	if a.Support != b.Support {
		return a.Support > b.Support
	}
	return a.Action().Less(b.Action())
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// WalkForward trains on each trailing window and applies the winning rule to the next day.
// Only configuration errors are returned; unresolved days are reported as gaps.
func WalkForward(actions []models.DailyAction, cfg Config) (models.WalkForwardResult, error) {
	res := models.WalkForwardResult{StartCapital: cfg.StartCapital}
	if err := cfg.Validate(); err != nil {
		return res, err
	}
	h := index(actions)
	w := cfg.TrainWindowDays
	equity := cfg.StartCapital
	var rets []float64

	for i := w; i < len(h.dates); i++ {
		day := h.dates[i]
		dec := decide(h, h.dates[i-w:i], day, cfg)
		res.Decisions = append(res.Decisions, dec)
		if !dec.Resolved {
			res.DaysWithNoAction = append(res.DaysWithNoAction, day)
			continue
		}
		equity *= 1 + dec.DayReturn
		rets = append(rets, dec.DayReturn)
		res.DailyReturns = append(res.DailyReturns, models.DatedReturn{Date: day, Return: dec.DayReturn})
		res.Equity = append(res.Equity, models.EquityPoint{Date: day, Equity: equity})
	}

	res.FinalEquity = equity
	res.TotalReturn = equity/cfg.StartCapital - 1
	res.SharpeLike = SharpeLike(rets)
	res.MaxDrawdown = Drawdown(equitySeries(cfg.StartCapital, res.Equity)).MaxDrawdown
	return res, nil
}

// decide resolves one test day from its training days. Nothing on or after day feeds the rule.
func decide(h history, trainDates []time.Time, day time.Time, cfg Config) models.PolicyDecision {
	dec := models.PolicyDecision{Date: day}
	table, err := train(h, trainDates, cfg)
	if err != nil {
		dec.Reason = ReasonNoRegime
		return dec
	}
	todays := h.byDay[day]
	feats := make([]models.RegimeFeatures, len(todays))
	for i, r := range todays {
		feats[i] = r.Features
	}
	key, ok := regime.ModalKey(feats, cfg.Fields, table.Edges)
	if !ok {
		dec.Reason = ReasonNoRegime
		return dec
	}
	dec.Key = key
	rule, ok := table.Lookup(key)
	if !ok {
		dec.Reason = ReasonNoRule
		return dec
	}
	dec.Rule = &rule
	for _, r := range todays {
		if r.Action() == rule.Action() && !math.IsNaN(r.DayReturn) {
			dec.DayReturn = r.DayReturn
			dec.Resolved = true
			return dec
		}
	}
	dec.Reason = ReasonNoActionRow
	return dec
}

func equitySeries(start float64, pts []models.EquityPoint) []float64 {
	out := make([]float64, 0, len(pts)+1)
	out = append(out, start)
	for _, p := range pts {
		out = append(out, p.Equity)
	}
	return out
}

// BuildRuleTable trains on the last TrainWindowDays distinct days of actions, for live scoring.
func BuildRuleTable(actions []models.DailyAction, cfg Config) (models.RuleTable, error) {
	if err := cfg.Validate(); err != nil {
		return models.RuleTable{}, err
	}
	h := index(actions)
	dates := h.dates
	if len(dates) > cfg.TrainWindowDays {
		dates = dates[len(dates)-cfg.TrainWindowDays:]
	}
	table, err := train(h, dates, cfg)
	if err != nil && !models.IsInsufficient(err) {
		return table, err
	}
	return table, nil
}

// Recommend looks up today's action from precomputed features.
func Recommend(table models.RuleTable, today models.RegimeFeatures) (models.PolicyRule, error) {
	key, ok := regime.Key(today, table.Fields, table.Edges)
	if !ok {
		return models.PolicyRule{}, models.ErrInsufficientData
	}
	rule, ok := table.Lookup(key)
	if !ok {
		return models.PolicyRule{}, models.ErrNoMatchingRule
	}
	return rule, nil
}

// Static evaluates a fixed action over every day it has a row.
func Static(actions []models.DailyAction, action models.ActionID, startCapital float64) models.WalkForwardResult {
	h := index(actions)
	res := models.WalkForwardResult{StartCapital: startCapital}
	equity := startCapital
	var rets []float64
	for _, d := range h.dates {
		found := false
		for _, r := range h.byDay[d] {
			if r.Action() == action && !math.IsNaN(r.DayReturn) {
				equity *= 1 + r.DayReturn
				rets = append(rets, r.DayReturn)
				res.DailyReturns = append(res.DailyReturns, models.DatedReturn{Date: d, Return: r.DayReturn})
				res.Equity = append(res.Equity, models.EquityPoint{Date: d, Equity: equity})
				found = true
				break
			}
		}
		if !found {
			res.DaysWithNoAction = append(res.DaysWithNoAction, d)
		}
	}
	res.FinalEquity = equity
	if startCapital > 0 {
		res.TotalReturn = equity/startCapital - 1
	}
	res.SharpeLike = SharpeLike(rets)
	res.MaxDrawdown = Drawdown(equitySeries(startCapital, res.Equity)).MaxDrawdown
	return res
}
