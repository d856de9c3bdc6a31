package repository

import (
	"context"
	"errors"

	"RatioLab/internal/domain/models"
	domrepo "RatioLab/internal/domain/repository"
)

// MultiSink fans every write out to each sink and joins their errors.
type MultiSink struct {
	sinks []domrepo.ResultSink
}

// NewMultiSink drops nil sinks.
func NewMultiSink(sinks ...domrepo.ResultSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len reports the number of wrapped sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) each(fn func(domrepo.ResultSink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Init(ctx context.Context) error {
	return m.each(func(s domrepo.ResultSink) error { return s.Init(ctx) })
}

func (m *MultiSink) StoreBaselines(ctx context.Context, runID string, b []models.Baseline) error {
	if len(b) == 0 {
		return nil
	}
	return m.each(func(s domrepo.ResultSink) error { return s.StoreBaselines(ctx, runID, b) })
}

func (m *MultiSink) StoreLeaderboard(ctx context.Context, lb models.Leaderboard) error {
	return m.each(func(s domrepo.ResultSink) error { return s.StoreLeaderboard(ctx, lb) })
}

func (m *MultiSink) StoreDailyActions(ctx context.Context, runID string, a []models.DailyAction) error {
	if len(a) == 0 {
		return nil
	}
	return m.each(func(s domrepo.ResultSink) error { return s.StoreDailyActions(ctx, runID, a) })
}

func (m *MultiSink) StoreWalkForward(ctx context.Context, res models.WalkForwardResult) error {
	return m.each(func(s domrepo.ResultSink) error { return s.StoreWalkForward(ctx, res) })
}

func (m *MultiSink) Close() error {
	return m.each(func(s domrepo.ResultSink) error { return s.Close() })
}
