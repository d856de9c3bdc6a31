package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memoizer is a content-addressed result cache keyed by (function name, arguments).
// A nil Memoizer or one without a Service just calls through.
type Memoizer struct {
	svc   Service
	ttl   time.Duration
	group singleflight.Group
}

// NewMemoizer caches results in svc for ttl.
func NewMemoizer(svc Service, ttl time.Duration) *Memoizer {
	return &Memoizer{svc: svc, ttl: ttl}
}

func memoPrefix(fn string) string {
	return GenerateKey("memo", fn)
}

// Key returns the cache key for fn applied to args. args must be JSON encodable; struct
// fields and map keys encode in a fixed order, so equal arguments give equal keys.
func Key(fn string, args interface{}) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("memo key %s: %w", fn, err)
	}
	return GenerateKey(memoPrefix(fn), HashKey(string(b))), nil
}

// Do returns the cached result of fn(args) or computes, stores and returns it. Concurrent
// callers with the same key share one computation. Cache failures fall back to compute.
func Do[T any](ctx context.Context, m *Memoizer, fn string, args interface{}, compute func(context.Context) (T, error)) (T, error) {
	if m == nil || m.svc == nil {
		return compute(ctx)
	}
	key, err := Key(fn, args)
	if err != nil {
		return compute(ctx)
	}

	var out T
	if err := m.svc.Get(ctx, key, &out); err == nil {
		return out, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		res, err := compute(ctx)
		if err != nil {
			return res, err
		}
		_ = m.svc.Set(ctx, key, res, m.ttl)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every cached result of fn.
func (m *Memoizer) Invalidate(ctx context.Context, fn string) error {
	if m == nil || m.svc == nil {
		return nil
	}
	if err := m.svc.DeleteByPattern(ctx, BuildPattern(memoPrefix(fn)+":")); err != nil && !errors.Is(err, ErrCacheMiss) {
		return fmt.Errorf("invalidate %s: %w", fn, err)
	}
	return nil
}
