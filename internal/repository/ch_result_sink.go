package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"RatioLab/internal/domain/models"
	pkgch "RatioLab/pkg/clickhouse"
	"RatioLab/pkg/logger"
)

const (
	insertBaselines = `INSERT INTO rl_baselines
        (run_id, symbol, as_of, method, value, defined, lookback_days, samples) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertLeaderboard = `INSERT INTO rl_leaderboard
        (run_id, symbol, date_from, date_to, rank, method, buy_pct, sell_pct, total_return, trade_count, days_used, final_equity)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertDailyActions = `INSERT INTO rl_daily_actions
        (run_id, date, symbol, session, method, buy_pct, sell_pct, day_return, trade_count, baseline, confidence, features)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertDecisions = `INSERT INTO rl_policy_decisions
        (run_id, symbol, date, regime_key, method, buy_pct, sell_pct, day_return, resolved, reason)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// CHResultSink writes results to ClickHouse tables in chunks of batchSize rows.
type CHResultSink struct {
	ch        *pkgch.Client
	batchSize int
	l         *logger.Logger
}

// NewCHResultSink creates a ClickHouse sink.
func NewCHResultSink(ch *pkgch.Client, batchSize int, l *logger.Logger) *CHResultSink {
	if batchSize <= 0 {
		batchSize = 2000
	}
	if l == nil {
		l = logger.Nop()
	}
	return &CHResultSink{ch: ch, batchSize: batchSize, l: l}
}

func (s *CHResultSink) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, sinkDDL)
}

func (s *CHResultSink) insert(ctx context.Context, table, query string, n int, row func(i int) []any) error {
	for start := 0; start < n; start += s.batchSize {
		end := min(start+s.batchSize, n)
		if err := s.ch.InsertBatch(ctx, query, end-start, func(i int) []any { return row(start + i) }); err != nil {
			s.l.Error("clickhouse sink insert failed", logger.String("table", table), logger.Error(err))
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (s *CHResultSink) StoreBaselines(ctx context.Context, runID string, baselines []models.Baseline) error {
	return s.insert(ctx, "rl_baselines", insertBaselines, len(baselines), func(i int) []any {
		b := baselines[i]
		return []any{runID, b.Symbol, b.AsOfDate, string(b.Method), b.Value, boolToUint8(b.Defined), uint16(b.LookbackDays), uint32(b.SampleCount)}
	})
}

func (s *CHResultSink) StoreLeaderboard(ctx context.Context, lb models.Leaderboard) error {
	return s.insert(ctx, "rl_leaderboard", insertLeaderboard, len(lb.Rows), func(i int) []any {
		r := lb.Rows[i]
		return []any{lb.RunID, lb.Symbol, lb.From, lb.To, uint32(i + 1), string(r.Method), r.BuyPct, r.SellPct,
			r.TotalReturn, uint32(r.TradeCount), uint32(r.DaysUsed), r.FinalEquity}
	})
}

func (s *CHResultSink) StoreDailyActions(ctx context.Context, runID string, actions []models.DailyAction) error {
	return s.insert(ctx, "rl_daily_actions", insertDailyActions, len(actions), func(i int) []any {
		a := actions[i]
		feats, _ := json.Marshal(a.Features)
		return []any{runID, a.Date, a.Symbol, a.Session, string(a.Method), a.BuyPct, a.SellPct, a.DayReturn,
			uint32(a.TradeCount), a.Baseline, a.Confidence, string(feats)}
	})
}

func (s *CHResultSink) StoreWalkForward(ctx context.Context, res models.WalkForwardResult) error {
	return s.insert(ctx, "rl_policy_decisions", insertDecisions, len(res.Decisions), func(i int) []any {
		d := res.Decisions[i]
		var method string
		var buy, sell float64
		if d.Rule != nil {
			method, buy, sell = string(d.Rule.Method), d.Rule.BuyPct, d.Rule.SellPct
		}
		return []any{res.RunID, res.Symbol, d.Date, d.Key.String(), method, buy, sell, d.DayReturn,
			boolToUint8(d.Resolved), d.Reason}
	})
}

// Close is a no-op; the client is owned by the caller.
func (s *CHResultSink) Close() error {
	return nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
