package policy

import (
	"errors"
	"math"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
)

var (
	actA = models.ActionID{Method: models.MethodVWAPRatio, BuyPct: 1, SellPct: 1}
	actB = models.ActionID{Method: models.MethodEqualMean, BuyPct: 2, SellPct: 1}
)

func date(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func row(day int, a models.ActionID, ret, feature float64) models.DailyAction {
	f := models.MissingFeatures()
	f.BenchPrevRet = feature
	return models.DailyAction{
		Date:       date(day),
		Symbol:     "TEST",
		Method:     a.Method,
		BuyPct:     a.BuyPct,
		SellPct:    a.SellPct,
		DayReturn:  ret,
		Confidence: 50,
		Features:   f,
	}
}

// regimeHistory: A wins on low-feature days, B on high-feature days.
func regimeHistory() []models.DailyAction {
	feats := []float64{-1, 1, -2, 2, -1.5, 1.5}
	var out []models.DailyAction
	for d, f := range feats {
		if f < 0 {
			out = append(out, row(d, actA, 0.01, f), row(d, actB, -0.01, f))
		} else {
			out = append(out, row(d, actA, -0.01, f), row(d, actB, 0.02, f))
		}
	}
	return out
}

func cfg() Config {
	return Config{
		Fields:          []models.RegimeField{models.FieldBenchPrevRet},
		Bins:            2,
		TrainWindowDays: 4,
		StartCapital:    10000,
		MinSupport:      1,
	}
}

func TestWalkForwardPicksRegimeWinner(t *testing.T) {
	res, err := WalkForward(regimeHistory(), cfg())
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(res.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(res.Decisions))
	}
	if r := res.Decisions[0].Rule; r == nil || r.Action() != actA {
		t.Fatalf("day 4 expected action A, got %+v", res.Decisions[0])
	}
	if r := res.Decisions[1].Rule; r == nil || r.Action() != actB {
		t.Fatalf("day 5 expected action B, got %+v", res.Decisions[1])
	}
	want := 10000 * 1.01 * 1.02
	if math.Abs(res.FinalEquity-want) > 1e-9 {
		t.Fatalf("expected equity %v, got %v", want, res.FinalEquity)
	}
	if len(res.Equity) != 2 || len(res.DaysWithNoAction) != 0 {
		t.Fatalf("unexpected curve %+v", res)
	}
}

func TestWalkForwardIgnoresFutureData(t *testing.T) {
	base, _ := WalkForward(regimeHistory(), cfg())

	changed := regimeHistory()
	for i := range changed {
		if changed[i].Date.Equal(date(5)) {
			changed[i].DayReturn = -0.5
			changed[i].Features.BenchPrevRet = -100
		}
	}
	changed = append(changed, row(6, actA, 0.3, 50), row(6, actB, -0.3, 50))
	got, _ := WalkForward(changed, cfg())

	a, b := base.Decisions[0], got.Decisions[0]
	if a.Key != b.Key || a.DayReturn != b.DayReturn || *a.Rule != *b.Rule {
		t.Fatalf("day 4 decision changed: %+v vs %+v", a, b)
	}
}

func TestWalkForwardGapsWhenSupportTooHigh(t *testing.T) {
	c := cfg()
	c.MinSupport = 10
	res, err := WalkForward(regimeHistory(), c)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(res.DaysWithNoAction) != 2 || len(res.Equity) != 0 {
		t.Fatalf("expected two gap days, got %+v", res)
	}
	if res.FinalEquity != 10000 || res.Decisions[0].Reason != ReasonNoRule {
		t.Fatalf("gaps must not move equity: %+v", res)
	}
}

func TestWalkForwardMinConfidence(t *testing.T) {
	c := cfg()
	c.MinConfidence = 60
	res, _ := WalkForward(regimeHistory(), c)
	if len(res.DaysWithNoAction) != 2 {
		t.Fatalf("expected confidence gate to reject all rules, got %+v", res.Decisions)
	}
}

func TestRuleTieBreak(t *testing.T) {
	a := models.PolicyRule{Method: models.MethodVWAPRatio, BuyPct: 1, AvgReturn: 0.01, Support: 3}
	b := models.PolicyRule{Method: models.MethodEqualMean, BuyPct: 1, AvgReturn: 0.01, Support: 3}
	if !better(b, a) || better(a, b) {
		t.Fatalf("expected lexical method order to break ties")
	}
	c := b
	c.Support = 4
	if !better(c, b) {
		t.Fatalf("expected higher support to win")
	}
}

func TestBuildRuleTableAndRecommend(t *testing.T) {
	table, err := BuildRuleTable(regimeHistory(), cfg())
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !table.TrainFrom.Equal(date(2)) || !table.TrainTo.Equal(date(5)) {
		t.Fatalf("expected trailing window, got %v..%v", table.TrainFrom, table.TrainTo)
	}
	f := models.MissingFeatures()
	f.BenchPrevRet = 3
	rule, err := Recommend(table, f)
	if err != nil || rule.Action() != actB {
		t.Fatalf("expected B for a high regime, got %+v %v", rule, err)
	}
	_, err = Recommend(table, models.MissingFeatures())
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	res := Static(regimeHistory(), actA, 100)
	if len(res.DailyReturns) != 6 {
		t.Fatalf("expected 6 days, got %d", len(res.DailyReturns))
	}
	want := 100 * math.Pow(1.01, 3) * math.Pow(0.99, 3)
	if math.Abs(res.FinalEquity-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, res.FinalEquity)
	}
}

func TestConfigValidate(t *testing.T) {
	c := cfg()
	c.Bins = 0
	var ce *models.ConfigError
	if _, err := WalkForward(nil, c); !errors.As(err, &ce) || ce.Param != "regime_bins" {
		t.Fatalf("expected regime_bins error, got %v", err)
	}
}

func TestSharpeAndDrawdown(t *testing.T) {
	if SharpeLike([]float64{0.01, 0.01}) != 0 {
		t.Fatalf("expected 0 for zero variance")
	}
	if s := SharpeLike([]float64{0.02, 0}); math.Abs(s-1) > 1e-12 {
		t.Fatalf("expected 1, got %v", s)
	}
	dd := Drawdown([]float64{100, 120, 90, 130})
	if math.Abs(dd.MaxDrawdown+0.25) > 1e-12 {
		t.Fatalf("expected -25%%, got %v", dd.MaxDrawdown)
	}
	if math.Abs(dd.CalmarLike-1.2) > 1e-12 {
		t.Fatalf("expected calmar 1.2, got %v", dd.CalmarLike)
	}
}

func TestCosts(t *testing.T) {
	c := Costs{Commission: 1, Capital: 10000, SpreadBps: 2, SlipBps: 3}
	if got := c.PerTrade(); math.Abs(got-0.0006) > 1e-15 {
		t.Fatalf("expected 6bps per trade, got %v", got)
	}
	if got := c.Apply(0.01, 2); math.Abs(got-0.0088) > 1e-15 {
		t.Fatalf("expected 0.0088, got %v", got)
	}
	if !(Costs{}).Zero() {
		t.Fatalf("expected zero cost model")
	}
}
