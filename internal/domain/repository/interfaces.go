package repository

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
)

// MinuteFeed supplies joined asset/benchmark minute bars. from and to are inclusive local dates.
type MinuteFeed interface {
	GetMinutes(ctx context.Context, symbol string, from, to time.Time) ([]models.MinuteBar, error)
	// TradingDays lists the distinct local dates with at least one bar, ascending.
	TradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
}

// ResultSink receives computed artifacts. Implementations must tolerate concurrent calls.
type ResultSink interface {
	Init(ctx context.Context) error // ensure tables/topics
	StoreBaselines(ctx context.Context, runID string, baselines []models.Baseline) error
	StoreLeaderboard(ctx context.Context, lb models.Leaderboard) error
	StoreDailyActions(ctx context.Context, runID string, actions []models.DailyAction) error
	StoreWalkForward(ctx context.Context, res models.WalkForwardResult) error
	Close() error
}

type Metrics interface {
	RecordSimulation(method string)
	RecordSkippedDay(reason string)
	RecordError(kind string)
	RecordBestReturn(symbol string, ret float64)
	RecordLatency(op string, seconds float64)
}
