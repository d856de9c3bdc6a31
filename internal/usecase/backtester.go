// Package usecase orchestrates the feed, the pure backtest packages and the result sink.
package usecase

import (
	"time"

	"github.com/google/uuid"

	domrepo "RatioLab/internal/domain/repository"
	"RatioLab/internal/services/baseline"
	"RatioLab/internal/services/policy"
	"RatioLab/pkg/cache"
	"RatioLab/pkg/config"
	"RatioLab/pkg/logger"
)

// Backtester serves baselines, grids, oracle days, curves and walk-forward runs.
type Backtester struct {
	feed    domrepo.MinuteFeed
	sink    domrepo.ResultSink
	metrics domrepo.Metrics
	log     *logger.Logger
	memo    *cache.Memoizer
	cfg     config.Backtest
	costs   policy.Costs
	opts    baseline.Options
	runID   func() string
}

// NewBacktester wires the use cases. sink, metrics and memo may be nil.
func NewBacktester(feed domrepo.MinuteFeed, sink domrepo.ResultSink, metrics domrepo.Metrics, memo *cache.Memoizer, cfg *config.Config, log *logger.Logger) *Backtester {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Backtester{
		feed:    feed,
		sink:    sink,
		metrics: metrics,
		log:     log,
		memo:    memo,
		cfg:     cfg.Backtest,
		costs: policy.Costs{
			Commission: cfg.Costs.Commission,
			Capital:    cfg.Costs.Capital,
			SpreadBps:  cfg.Costs.SpreadBps,
			SlipBps:    cfg.Costs.SlipBps,
		},
		opts: baseline.Options{
			MinSamples: cfg.Backtest.MinSamples,
			WinsorLow:  cfg.Backtest.WinsorLow,
			WinsorHigh: cfg.Backtest.WinsorHigh,
		},
		runID: uuid.NewString,
	}
}

// Defaults returns the backtest section the requests fall back to.
func (b *Backtester) Defaults() config.Backtest {
	return b.cfg
}

func (b *Backtester) observe(op string, start time.Time) {
	b.metrics.RecordLatency(op, time.Since(start).Seconds())
}

type nopMetrics struct{}

func (nopMetrics) RecordSimulation(string)          {}
func (nopMetrics) RecordSkippedDay(string)          {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordBestReturn(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)    {}
