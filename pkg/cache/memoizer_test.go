package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	Symbol string
	Day    int
}

func TestMemoizerHitsAndInvalidates(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	m := NewMemoizer(mc, time.Minute)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]float64, error) {
		calls++
		return []float64{1.5, 2.5}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Do(ctx, m, "minutes", point{"ABC", 1}, compute)
		if err != nil || len(got) != 2 || got[1] != 2.5 {
			t.Fatalf("unexpected result %v %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one computation, got %d", calls)
	}

	_, _ = Do(ctx, m, "minutes", point{"ABC", 2}, compute)
	if calls != 2 {
		t.Fatalf("different args must miss, got %d calls", calls)
	}
	_, _ = Do(ctx, m, "baseline", point{"ABC", 1}, compute)
	if calls != 3 {
		t.Fatalf("different function must miss, got %d calls", calls)
	}

	if err := m.Invalidate(ctx, "minutes"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mc.Len() != 1 {
		t.Fatalf("expected only the baseline entry to survive, got %d", mc.Len())
	}
	_, _ = Do(ctx, m, "minutes", point{"ABC", 1}, compute)
	if calls != 4 {
		t.Fatalf("expected recompute after invalidate, got %d calls", calls)
	}
}

func TestMemoizerDoesNotCacheErrors(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	m := NewMemoizer(mc, time.Minute)
	boom := errors.New("boom")
	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return 0, boom
	}
	for i := 0; i < 2; i++ {
		if _, err := Do(context.Background(), m, "f", 1, compute); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("errors must not be cached, got %d calls", calls)
	}
}

func TestNilMemoizerCallsThrough(t *testing.T) {
	var m *Memoizer
	got, err := Do(context.Background(), m, "f", nil, func(context.Context) (string, error) { return "x", nil })
	if err != nil || got != "x" {
		t.Fatalf("unexpected %q %v", got, err)
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()
	_ = mc.Set(ctx, "a", 1, 0)
	time.Sleep(2 * time.Millisecond)
	_ = mc.Set(ctx, "b", 2, 0)
	time.Sleep(2 * time.Millisecond)
	var v int
	_ = mc.Get(ctx, "a", &v)
	_ = mc.Set(ctx, "c", 3, 0)
	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b evicted")
	}
	if err := mc.Get(ctx, "a", &v); err != nil || v != 1 {
		t.Fatalf("expected a retained, got %v %v", v, err)
	}
}

func TestLayeredReadsThrough(t *testing.T) {
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemorySize(10))
	defer lc.Close()
	ctx := context.Background()
	_ = remote.Set(ctx, "k", point{"X", 3}, 0)
	var p point
	if err := lc.Get(ctx, "k", &p); err != nil || p.Day != 3 {
		t.Fatalf("expected read-through, got %+v %v", p, err)
	}
	if err := lc.Get(ctx, "missing", &p); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}
