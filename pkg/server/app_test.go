package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/usecase"
	"RatioLab/pkg/config"
	"RatioLab/pkg/logger"
)

type emptyFeed struct{}

func (emptyFeed) GetMinutes(context.Context, string, time.Time, time.Time) ([]models.MinuteBar, error) {
	return nil, nil
}

func (emptyFeed) TradingDays(context.Context, string, time.Time, time.Time) ([]time.Time, error) {
	return nil, nil
}

func newTestApp(t *testing.T, closers []Closer) *App {
	t.Helper()
	cfg, err := config.Parse([]byte("backtest:\n  buy_min: 1\n  buy_max: 1\n  sell_min: 1\n  sell_max: 1\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	bt := usecase.NewBacktester(emptyFeed{}, nil, nil, nil, cfg, logger.Nop())
	return New(cfg, logger.Nop(), bt, nil, nil, nil, nil, closers)
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"serve", "worker", "grid", "oracle", "walkforward"} {
		if m, err := ParseMode(s); err != nil || string(m) != s {
			t.Fatalf("ParseMode(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseMode("replay"); err == nil {
		t.Fatal("ParseMode(replay) succeeded")
	}
}

func TestRunOnceWritesGridJSON(t *testing.T) {
	a := newTestApp(t, nil)
	var out bytes.Buffer
	once := OneShot{
		Symbol: "TEST",
		From:   time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC),
		Out:    &out,
	}
	if err := a.runOnce(context.Background(), ModeGrid, once); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	var lb models.Leaderboard
	if err := json.Unmarshal(out.Bytes(), &lb); err != nil {
		t.Fatalf("output is not a leaderboard: %v (%s)", err, out.String())
	}
	if lb.Symbol != "TEST" {
		t.Fatalf("symbol = %q", lb.Symbol)
	}
}

func TestRunOnceRequiresSymbol(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.runOnce(context.Background(), ModeOracle, OneShot{}); err == nil {
		t.Fatal("runOnce without symbol succeeded")
	}
}

func TestWorkWithoutTransportFails(t *testing.T) {
	a := newTestApp(t, nil)
	if err := a.work(context.Background()); err == nil {
		t.Fatal("work without job handler succeeded")
	}
}

func TestShutdownClosesInOrder(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	closers := []Closer{
		{Name: "sink", Close: func() error { order = append(order, "sink"); return nil }},
		{Name: "producer", Close: func() error { order = append(order, "producer"); return boom }},
		{Name: "clickhouse", Close: func() error { order = append(order, "clickhouse"); return nil }},
	}
	a := newTestApp(t, closers)

	err := a.shutdown()
	if !errors.Is(err, boom) {
		t.Fatalf("shutdown err = %v, want boom", err)
	}
	if len(order) != 3 || order[0] != "sink" || order[2] != "clickhouse" {
		t.Fatalf("close order = %v", order)
	}
}
