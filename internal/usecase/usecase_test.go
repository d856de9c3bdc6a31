package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/session"
	"RatioLab/internal/services/simulator"
	"RatioLab/pkg/config"
	"RatioLab/pkg/logger"
)

// fakeFeed serves in-memory bars and remembers the latest date it was asked for.
type fakeFeed struct {
	mu     sync.Mutex
	bars   []models.MinuteBar
	maxTo  time.Time
	called int
}

func (f *fakeFeed) note(to time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called++
	if to.After(f.maxTo) {
		f.maxTo = to
	}
}

func inRange(b models.MinuteBar, from, to time.Time) bool {
	k := b.DateKey()
	return k >= from.Format(models.DateLayout) && k <= to.Format(models.DateLayout)
}

func (f *fakeFeed) GetMinutes(_ context.Context, _ string, from, to time.Time) ([]models.MinuteBar, error) {
	f.note(to)
	var out []models.MinuteBar
	for _, b := range f.bars {
		if inRange(b, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeFeed) TradingDays(_ context.Context, _ string, from, to time.Time) ([]time.Time, error) {
	f.note(to)
	var out []time.Time
	seen := map[string]bool{}
	for _, b := range f.bars {
		if inRange(b, from, to) && !seen[b.DateKey()] {
			seen[b.DateKey()] = true
			out = append(out, b.LocalDate)
		}
	}
	return out, nil
}

type fakeSink struct {
	mu          sync.Mutex
	leaderboard []models.Leaderboard
	actions     int
	walks       int
	baselines   int
}

func (s *fakeSink) Init(context.Context) error { return nil }
func (s *fakeSink) StoreBaselines(_ context.Context, _ string, b []models.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines += len(b)
	return nil
}
func (s *fakeSink) StoreLeaderboard(_ context.Context, lb models.Leaderboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = append(s.leaderboard, lb)
	return nil
}
func (s *fakeSink) StoreDailyActions(_ context.Context, _ string, a []models.DailyAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions += len(a)
	return nil
}
func (s *fakeSink) StoreWalkForward(context.Context, models.WalkForwardResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walks++
	return nil
}
func (s *fakeSink) Close() error { return nil }

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// day builds RTH minutes from 10:00 local with the given asset and benchmark closes.
func day(d string, asset, bench []float64) []models.MinuteBar {
	t := date(d)
	out := make([]models.MinuteBar, len(asset))
	for i := range asset {
		ts := time.Date(t.Year(), t.Month(), t.Day(), 10, i, 0, 0, session.Location())
		out[i] = session.Localize(models.MinuteBar{
			Timestamp:       ts,
			AssetClose:      asset[i],
			AssetVolume:     1000,
			BenchmarkClose:  bench[i],
			BenchmarkVolume: 1000,
		})
	}
	return out
}

func flatDay(d string, ratio float64) []models.MinuteBar {
	asset := make([]float64, 10)
	bench := make([]float64, 10)
	for i := range asset {
		asset[i] = 100
		bench[i] = 100 * ratio
	}
	return day(d, asset, bench)
}

// swingDay dips the asset to 98 then lifts it to 102 with a flat benchmark, so a 1% buy
// threshold enters at 98 and a 1% sell threshold exits at 102.
func swingDay(d string) []models.MinuteBar {
	asset := []float64{100, 100, 100, 100, 100, 98, 102, 100, 100, 100}
	bench := make([]float64, len(asset))
	for i := range bench {
		bench[i] = 100
	}
	return day(d, asset, bench)
}

var tradingDates = []string{
	"2024-02-05", "2024-02-06", "2024-02-07", "2024-02-08",
	"2024-02-09", "2024-02-12", "2024-02-13", "2024-02-14",
}

func swingFeed() *fakeFeed {
	f := &fakeFeed{}
	for _, d := range tradingDates {
		f.bars = append(f.bars, swingDay(d)...)
	}
	return f
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("backtest:\n  min_samples: 1\n  lookback_days: 2\n  workers: 2\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func newTestBacktester(t *testing.T, feed *fakeFeed, sink *fakeSink) *Backtester {
	t.Helper()
	b := NewBacktester(feed, sink, nil, nil, testConfig(t), logger.Nop())
	if sink == nil {
		b.sink = nil
	}
	return b
}

func scope(from, to string, methods ...models.Method) Scope {
	return Scope{
		Symbol:   "TEST",
		From:     date(from),
		To:       date(to),
		Methods:  methods,
		Lookback: 2,
		Window:   session.Window{Kind: session.WindowRTH},
	}
}

func TestGetBaselineNoLookAhead(t *testing.T) {
	feed := &fakeFeed{}
	for _, d := range tradingDates[:4] {
		feed.bars = append(feed.bars, flatDay(d, 1)...)
	}
	feed.bars = append(feed.bars, flatDay(tradingDates[4], 5)...)
	b := newTestBacktester(t, feed, nil)
	asOf := date(tradingDates[4])

	got, err := b.GetBaseline(context.Background(), "TEST", asOf, models.MethodEqualMean, 3)
	if err != nil {
		t.Fatalf("GetBaseline: %v", err)
	}
	if !got.Defined || math.Abs(got.Value-1) > 1e-12 {
		t.Fatalf("baseline = %+v, want defined 1", got)
	}
	if got.SampleCount != 30 {
		t.Fatalf("samples = %d, want 30", got.SampleCount)
	}
	if !feed.maxTo.Before(asOf) {
		t.Fatalf("feed read up to %s, want before %s", feed.maxTo.Format(models.DateLayout), asOf.Format(models.DateLayout))
	}

	// Rewriting the as-of day must not move its baseline.
	for i := range feed.bars {
		if feed.bars[i].DateKey() == tradingDates[4] {
			feed.bars[i].BenchmarkClose = 1e6
		}
	}
	again, err := b.GetBaseline(context.Background(), "TEST", asOf, models.MethodEqualMean, 3)
	if err != nil || again.Value != got.Value {
		t.Fatalf("baseline changed after editing as-of day: %+v, %v", again, err)
	}
}

func TestGetBaselineInsufficientHistory(t *testing.T) {
	feed := &fakeFeed{}
	for _, d := range tradingDates[:2] {
		feed.bars = append(feed.bars, flatDay(d, 1)...)
	}
	b := newTestBacktester(t, feed, nil)

	got, err := b.GetBaseline(context.Background(), "TEST", date(tradingDates[2]), models.MethodVWAPRatio, 5)
	if !models.IsInsufficient(err) {
		t.Fatalf("err = %v, want insufficient data", err)
	}
	if got.Defined {
		t.Fatalf("baseline should be undefined: %+v", got)
	}
}

func TestBaselineStoresToSink(t *testing.T) {
	feed := &fakeFeed{}
	for _, d := range tradingDates[:3] {
		feed.bars = append(feed.bars, flatDay(d, 1)...)
	}
	sink := &fakeSink{}
	b := newTestBacktester(t, feed, sink)

	req := BaselineRequest{
		Symbol:   "TEST",
		AsOf:     date(tradingDates[3]),
		Method:   models.MethodVolWeighted,
		Lookback: 2,
		Window:   session.Window{Kind: session.WindowRTH},
	}
	if _, err := b.Baseline(context.Background(), req); err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if sink.baselines != 1 {
		t.Fatalf("stored %d baselines, want 1", sink.baselines)
	}
}

func TestRunGridTwoByTwo(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBacktester(t, swingFeed(), sink)
	req := GridRequest{
		Scope:        scope(tradingDates[2], tradingDates[7], models.MethodVWAPRatio, models.MethodEqualMean),
		Buys:         []float64{1, 5},
		Sells:        []float64{1, 5},
		StartingCash: 10000,
		Flatten:      true,
	}

	lb, err := b.RunGrid(context.Background(), req)
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	perMethod := map[models.Method]int{}
	for _, r := range lb.Rows {
		perMethod[r.Method]++
	}
	for _, m := range req.Methods {
		if perMethod[m] != 4 {
			t.Fatalf("%s has %d rows, want 4", m, perMethod[m])
		}
	}
	if lb.SkippedDays != 0 || lb.UndefinedBaselines != 0 {
		t.Fatalf("skipped=%d undefined=%d, want 0/0", lb.SkippedDays, lb.UndefinedBaselines)
	}
	top := lb.Rows[0]
	if top.BuyPct != 1 || top.SellPct != 1 || !(top.TotalReturn > 0) {
		t.Fatalf("top row = %+v, want the 1%%/1%% cell with a gain", top)
	}
	for i := 1; i < len(lb.Rows); i++ {
		if lb.Rows[i].TotalReturn > lb.Rows[i-1].TotalReturn {
			t.Fatalf("rows not ranked at %d: %v > %v", i, lb.Rows[i].TotalReturn, lb.Rows[i-1].TotalReturn)
		}
	}
	if len(lb.Fills) != 0 {
		t.Fatalf("fills kept for a multi-cell grid")
	}
	if len(sink.leaderboard) != 1 || sink.leaderboard[0].RunID != lb.RunID {
		t.Fatalf("leaderboard not stored: %+v", sink.leaderboard)
	}
}

func TestRunGridCountsSkippedDays(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	req := GridRequest{
		Scope:        scope(tradingDates[0], tradingDates[3], models.MethodEqualMean),
		Buys:         []float64{1},
		Sells:        []float64{1},
		StartingCash: 10000,
		Log:          true,
	}
	lb, err := b.RunGrid(context.Background(), req)
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	if lb.SkippedDays != 2 {
		t.Fatalf("skipped = %d, want the 2 days without lookback", lb.SkippedDays)
	}
	if lb.Rows[0].DaysUsed != 2 {
		t.Fatalf("days used = %d, want 2", lb.Rows[0].DaysUsed)
	}
	if len(lb.Fills) == 0 || lb.Fills[len(lb.Fills)-1].Action != models.ActionMark {
		t.Fatalf("single-cell grid should keep the fill log ending in MARK: %+v", lb.Fills)
	}
}

func TestRunGridRejectsOversizedGrid(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	b.cfg.MaxGridCells = 3
	req := GridRequest{
		Scope:        scope(tradingDates[2], tradingDates[7], models.MethodEqualMean),
		Buys:         []float64{1, 2},
		Sells:        []float64{1, 2},
		StartingCash: 10000,
	}
	_, err := b.RunGrid(context.Background(), req)
	var ce *models.ConfigError
	if !errors.As(err, &ce) || ce.Param != "grid" {
		t.Fatalf("err = %v, want grid config error", err)
	}
}

func TestRank(t *testing.T) {
	rows := []models.LeaderboardRow{
		{Method: models.MethodVWAPRatio, BuyPct: 1, TotalReturn: math.NaN()},
		{Method: models.MethodVWAPRatio, BuyPct: 2, TotalReturn: 0.1, TradeCount: 4},
		{Method: models.MethodEqualMean, BuyPct: 3, TotalReturn: 0.1, TradeCount: 4},
		{Method: models.MethodVWAPRatio, BuyPct: 4, TotalReturn: 0.1, TradeCount: 2},
		{Method: models.MethodVWAPRatio, BuyPct: 5, TotalReturn: 0.2, TradeCount: 9},
	}
	Rank(rows)
	want := []float64{5, 4, 3, 2, 1}
	for i, w := range want {
		if rows[i].BuyPct != w {
			t.Fatalf("position %d has buy %v, want %v", i, rows[i].BuyPct, w)
		}
	}
	if rows[4].TotalReturn != 0 {
		t.Fatalf("NaN return should report as 0, got %v", rows[4].TotalReturn)
	}
}

func actionsRequest(from, to string, buys ...float64) ActionsRequest {
	return ActionsRequest{
		Scope:        scope(from, to, models.MethodEqualMean),
		Buys:         buys,
		Sells:        []float64{1},
		StartingCash: 10000,
		Horizon:      3,
	}
}

func TestDailyBestPicksMaxReturn(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	rep, err := b.DailyBest(context.Background(), actionsRequest(tradingDates[2], tradingDates[4], 5, 1))
	if err != nil {
		t.Fatalf("DailyBest: %v", err)
	}
	if len(rep.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(rep.Days))
	}
	for _, d := range rep.Days {
		if d.BuyPct != 1 || !(d.DayReturn > 0) || d.TradeCount != 2 {
			t.Fatalf("oracle day = %+v, want buy 1 with a round trip", d)
		}
		if d.Confidence < 0 || d.Confidence > 100 {
			t.Fatalf("confidence out of range: %v", d.Confidence)
		}
	}
	if len(rep.Summary) != 1 || rep.Summary[0].DaysWon != 3 {
		t.Fatalf("summary = %+v", rep.Summary)
	}
	if _, err := json.Marshal(rep); err != nil {
		t.Fatalf("report must encode: %v", err)
	}
}

func TestDailyBestFirstWinsTies(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	// Neither 5% nor 6% trades, so both return 0 and the first listed wins.
	rep, err := b.DailyBest(context.Background(), actionsRequest(tradingDates[2], tradingDates[2], 6, 5))
	if err != nil {
		t.Fatalf("DailyBest: %v", err)
	}
	if len(rep.Days) != 1 || rep.Days[0].BuyPct != 6 {
		t.Fatalf("days = %+v, want buy 6", rep.Days)
	}
}

func TestDailyActionsIsolatesDays(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBacktester(t, swingFeed(), sink)
	actions, err := b.DailyActions(context.Background(), actionsRequest(tradingDates[2], tradingDates[7], 1, 5))
	if err != nil {
		t.Fatalf("DailyActions: %v", err)
	}
	if len(actions) != 12 {
		t.Fatalf("rows = %d, want 6 days x 2 actions", len(actions))
	}
	var gain float64
	for _, a := range actions {
		if a.BuyPct == 1 {
			if gain == 0 {
				gain = a.DayReturn
			}
			if math.Abs(a.DayReturn-gain) > 1e-12 {
				t.Fatalf("identical days should give identical isolated returns: %v vs %v", a.DayReturn, gain)
			}
		}
		if v, ok := a.Features.Value(models.FieldBenchPrevRet); !ok || v != 0 {
			t.Fatalf("bench_prev_ret = %v, %v; want 0 from a flat benchmark", v, ok)
		}
	}
	if sink.actions != 12 {
		t.Fatalf("stored %d actions, want 12", sink.actions)
	}
}

func TestDailyActionsHonourParticipationCap(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	dayReturn := func(capPct float64) float64 {
		t.Helper()
		req := actionsRequest(tradingDates[2], tradingDates[2], 1)
		req.StartingCash = 100000
		req.ParticipationCapPct = capPct
		actions, err := b.DailyActions(context.Background(), req)
		if err != nil {
			t.Fatalf("DailyActions(cap %v): %v", capPct, err)
		}
		if len(actions) != 1 {
			t.Fatalf("rows = %d, want 1", len(actions))
		}
		return actions[0].DayReturn
	}

	uncapped, capped := dayReturn(0), dayReturn(10)
	// 1000 shares trade per bar, so a 10% cap buys 100 shares at 98 and sells them at 102.
	if math.Abs(capped-0.004) > 1e-9 {
		t.Fatalf("capped return = %v, want 0.004", capped)
	}
	if !(uncapped > capped) {
		t.Fatalf("uncapped %v should exceed capped %v", uncapped, capped)
	}

	req := actionsRequest(tradingDates[2], tradingDates[2], 1)
	req.ParticipationCapPct = 150
	if _, err := b.DailyBest(context.Background(), req); err == nil {
		t.Fatalf("cap above 100 accepted")
	}
}

func TestDailyCurve(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	req := CurveRequest{
		Scope:        scope(tradingDates[2], tradingDates[4], models.MethodEqualMean),
		Thresholds:   simulator.Thresholds{BuyPct: 1, SellPct: 1},
		StartingCash: 10000,
	}
	rep, err := b.DailyCurve(context.Background(), req)
	if err != nil {
		t.Fatalf("DailyCurve: %v", err)
	}
	if len(rep.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(rep.Points))
	}
	prev := 0.0
	for _, p := range rep.Points {
		if p.Buys != 1 || p.Sells != 1 || p.Trades != 2 {
			t.Fatalf("point = %+v, want one round trip", p)
		}
		if !(p.CumReturn > prev) {
			t.Fatalf("cumulative return should grow: %v after %v", p.CumReturn, prev)
		}
		prev = p.CumReturn
	}
	if rep.MaxDrawdown != 0 {
		t.Fatalf("drawdown = %v, want 0 on a rising curve", rep.MaxDrawdown)
	}
}

func TestCurveRequiresOneMethod(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	req := CurveRequest{
		Scope:        scope(tradingDates[2], tradingDates[4], models.MethodEqualMean, models.MethodVWAPRatio),
		Thresholds:   simulator.Thresholds{BuyPct: 1, SellPct: 1},
		StartingCash: 10000,
	}
	if _, err := b.DailyCurve(context.Background(), req); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestWalkForwardUsesStoredActions(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBacktester(t, swingFeed(), sink)
	req := WalkForwardRequest{
		ActionsRequest: actionsRequest(tradingDates[2], tradingDates[7], 1, 5),
	}
	req.Policy.Fields = []models.RegimeField{models.FieldBenchPrevRet}
	req.Policy.Bins = 1
	req.Policy.TrainWindowDays = 2
	req.Policy.StartCapital = 10000

	rep, err := b.WalkForward(context.Background(), req)
	if err != nil {
		t.Fatalf("WalkForward: %v", err)
	}
	res := rep.Policy
	if len(res.Decisions) != 4 || len(res.DaysWithNoAction) != 0 {
		t.Fatalf("decisions=%d gaps=%d, want 4/0", len(res.Decisions), len(res.DaysWithNoAction))
	}
	for _, d := range res.Decisions {
		if d.Rule == nil || d.Rule.BuyPct != 1 {
			t.Fatalf("decision = %+v, want the 1%% buy rule", d)
		}
	}
	if !(res.TotalReturn > 0) || !(rep.Static.TotalReturn >= res.TotalReturn) {
		t.Fatalf("policy %v, static %v", res.TotalReturn, rep.Static.TotalReturn)
	}
	if rep.StaticAction.BuyPct != 1 {
		t.Fatalf("static action = %+v", rep.StaticAction)
	}
	if len(rep.Rules.Rules) != 1 {
		t.Fatalf("rule table = %+v", rep.Rules)
	}
	if rep.Recommendation == nil || rep.Recommendation.BuyPct != 1 {
		t.Fatalf("recommendation = %+v", rep.Recommendation)
	}
	if rep.RecommendationFor == nil || rep.RecommendationFor.Format(models.DateLayout) != tradingDates[7] {
		t.Fatalf("recommendation day = %v, want %s", rep.RecommendationFor, tradingDates[7])
	}
	if sink.walks != 1 {
		t.Fatalf("walk-forward stored %d times", sink.walks)
	}
}

func TestWalkForwardRejectsBadPolicy(t *testing.T) {
	b := newTestBacktester(t, swingFeed(), nil)
	req := WalkForwardRequest{ActionsRequest: actionsRequest(tradingDates[2], tradingDates[7], 1)}
	if _, err := b.WalkForward(context.Background(), req); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestGridRequestFromQuery(t *testing.T) {
	q := models.GridQuery{
		Symbol:   "TEST",
		From:     "2024-02-05",
		To:       "2024-02-09",
		Methods:  "vwap_ratio, equal_mean",
		Lookback: 3,
		Window:   "AH",
		Cash:     5000,
		ThresholdGrid: models.ThresholdGrid{
			BuyMin: 0.5, BuyMax: 1.5, BuyStep: 0.5,
			SellMin: 1, SellMax: 1, SellStep: 0.5,
		},
	}
	req, err := GridRequestFromQuery(q, testConfig(t).Backtest)
	if err != nil {
		t.Fatalf("GridRequestFromQuery: %v", err)
	}
	if len(req.Methods) != 2 || len(req.Buys) != 3 || len(req.Sells) != 1 {
		t.Fatalf("request = %+v", req)
	}
	if req.Cells() != 6 || req.Window.Kind != session.WindowAH {
		t.Fatalf("cells=%d window=%v", req.Cells(), req.Window)
	}

	q.Methods = "NOPE"
	if _, err := GridRequestFromQuery(q, testConfig(t).Backtest); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
