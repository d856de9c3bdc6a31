package service

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
)

// BaselineService resolves a baseline for a date from strictly earlier trading days.
type BaselineService interface {
	GetBaseline(ctx context.Context, symbol string, asOf time.Time, method models.Method, lookback int) (models.Baseline, error)
}
