package usecase

import (
	"context"
	"fmt"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/domain/service"
	"RatioLab/internal/services/baseline"
	"RatioLab/internal/services/session"
	"RatioLab/pkg/logger"
)

var _ service.BaselineService = (*Backtester)(nil)

// GetBaseline computes asOf's baseline over the configured window from the lookback
// trading days strictly before asOf.
func (b *Backtester) GetBaseline(ctx context.Context, symbol string, asOf time.Time, method models.Method, lookback int) (models.Baseline, error) {
	w, err := session.ParseWindow(b.cfg.Window)
	if err != nil {
		return models.Baseline{}, err
	}
	req := BaselineRequest{Symbol: symbol, AsOf: asOf, Method: method, Lookback: lookback, Window: w}
	if b.cfg.LiquidityBaseline {
		req.Liquidity = session.Liquidity{MinShares: b.cfg.MinShares, MinDollar: b.cfg.MinDollar}
	}
	return b.Baseline(ctx, req)
}

// Baseline resolves one day's baseline. The feed is never asked for asOf or later, so
// the result cannot depend on that day's bars. When fewer than Lookback prior days exist
// or too few rows survive filtering, the returned baseline is undefined and the error
// wraps models.ErrInsufficientData.
func (b *Backtester) Baseline(ctx context.Context, req BaselineRequest) (models.Baseline, error) {
	defer b.observe("baseline", time.Now())
	if err := req.Validate(); err != nil {
		return models.Baseline{}, err
	}

	out := models.Baseline{
		Symbol:       req.Symbol,
		AsOfDate:     req.AsOf,
		Method:       req.Method,
		LookbackDays: req.Lookback,
		Session:      req.Window.String(),
	}

	to := req.AsOf.AddDate(0, 0, -1)
	days, err := b.priorDays(ctx, req.Symbol, to, req.Lookback)
	if err != nil {
		return out, err
	}
	if len(days) < req.Lookback {
		b.metrics.RecordSkippedDay("insufficient_history")
		return out, fmt.Errorf("%s as of %s: %d of %d lookback days: %w",
			req.Symbol, req.AsOf.Format(models.DateLayout), len(days), req.Lookback, models.ErrInsufficientData)
	}

	bars, err := b.feed.GetMinutes(ctx, req.Symbol, days[0], days[len(days)-1])
	if err != nil {
		return out, fmt.Errorf("minutes %s: %w", req.Symbol, err)
	}
	rows := req.Liquidity.Filter(req.Window.Filter(bars))
	res := baseline.Compute(rows, req.Method, b.opts)
	out.SampleCount = res.Samples
	if !res.Defined {
		b.metrics.RecordSkippedDay("baseline_undefined")
		b.log.Warn("baseline undefined",
			logger.String("symbol", req.Symbol),
			logger.String("method", string(req.Method)),
			logger.Date("as_of", req.AsOf),
			logger.Int("samples", res.Samples))
		return out, fmt.Errorf("%s %s as of %s: %d samples: %w",
			req.Symbol, req.Method, req.AsOf.Format(models.DateLayout), res.Samples, models.ErrInsufficientData)
	}
	out.Value = res.Value
	out.Defined = true

	if b.sink != nil {
		if err := b.sink.StoreBaselines(ctx, b.runID(), []models.Baseline{out}); err != nil {
			b.metrics.RecordError("sink")
			b.log.Error("store baseline", logger.Error(err))
		}
	}
	return out, nil
}

// priorDays returns up to n trading days ending on or before to, widening the calendar
// window until enough are found.
func (b *Backtester) priorDays(ctx context.Context, symbol string, to time.Time, n int) ([]time.Time, error) {
	pad := n*2 + 7
	var days []time.Time
	for round := 0; round < maxPadRounds; round++ {
		var err error
		days, err = b.feed.TradingDays(ctx, symbol, to.AddDate(0, 0, -pad), to)
		if err != nil {
			return nil, fmt.Errorf("trading days %s: %w", symbol, err)
		}
		if len(days) >= n {
			break
		}
		pad *= 2
	}
	if len(days) > n {
		days = days[len(days)-n:]
	}
	return days, nil
}
