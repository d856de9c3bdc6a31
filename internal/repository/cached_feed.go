package repository

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
	domrepo "RatioLab/internal/domain/repository"
	"RatioLab/pkg/cache"
)

const (
	memoMinutes     = "feed.minutes"
	memoTradingDays = "feed.trading_days"
)

// CachedFeed memoizes a MinuteFeed by (symbol, from, to).
type CachedFeed struct {
	next domrepo.MinuteFeed
	memo *cache.Memoizer
}

// NewCachedFeed wraps next. A nil memoizer disables caching.
func NewCachedFeed(next domrepo.MinuteFeed, memo *cache.Memoizer) *CachedFeed {
	return &CachedFeed{next: next, memo: memo}
}

type feedArgs struct {
	Symbol string `json:"symbol"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func argsFor(symbol string, from, to time.Time) feedArgs {
	return feedArgs{Symbol: symbol, From: from.Format(models.DateLayout), To: to.Format(models.DateLayout)}
}

func (f *CachedFeed) GetMinutes(ctx context.Context, symbol string, from, to time.Time) ([]models.MinuteBar, error) {
	return cache.Do(ctx, f.memo, memoMinutes, argsFor(symbol, from, to), func(ctx context.Context) ([]models.MinuteBar, error) {
		return f.next.GetMinutes(ctx, symbol, from, to)
	})
}

func (f *CachedFeed) TradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	return cache.Do(ctx, f.memo, memoTradingDays, argsFor(symbol, from, to), func(ctx context.Context) ([]time.Time, error) {
		return f.next.TradingDays(ctx, symbol, from, to)
	})
}

// Invalidate drops every cached feed result, e.g. after a backfill.
func (f *CachedFeed) Invalidate(ctx context.Context) error {
	if err := f.memo.Invalidate(ctx, memoMinutes); err != nil {
		return err
	}
	return f.memo.Invalidate(ctx, memoTradingDays)
}
