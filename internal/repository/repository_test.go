package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
	domrepo "RatioLab/internal/domain/repository"
	"RatioLab/internal/services/session"
	"RatioLab/pkg/cache"
	pkgkafka "RatioLab/pkg/kafka"
)

type countingFeed struct {
	minutes int
	days    int
	bars    []models.MinuteBar
}

func (f *countingFeed) GetMinutes(context.Context, string, time.Time, time.Time) ([]models.MinuteBar, error) {
	f.minutes++
	return f.bars, nil
}

func (f *countingFeed) TradingDays(context.Context, string, time.Time, time.Time) ([]time.Time, error) {
	f.days++
	return []time.Time{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}, nil
}

func TestCachedFeedMemoizesAndInvalidates(t *testing.T) {
	ts := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	inner := &countingFeed{bars: []models.MinuteBar{session.Localize(models.MinuteBar{
		Timestamp: ts, AssetClose: 100, AssetVolume: 10, BenchmarkClose: 50, BenchmarkVolume: 20,
	})}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	feed := NewCachedFeed(inner, cache.NewMemoizer(mc, time.Minute))
	ctx := context.Background()
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		bars, err := feed.GetMinutes(ctx, "ABC", from, from)
		if err != nil || len(bars) != 1 {
			t.Fatalf("unexpected %v %v", bars, err)
		}
		if !bars[0].Timestamp.Equal(ts) || bars[0].Session != models.SessionRTH || bars[0].LocalTime.Hour != 10 {
			t.Fatalf("bar did not survive the cache: %+v", bars[0])
		}
		if _, err := feed.TradingDays(ctx, "ABC", from, from); err != nil {
			t.Fatalf("trading days: %v", err)
		}
	}
	if inner.minutes != 1 || inner.days != 1 {
		t.Fatalf("expected one call each, got %d/%d", inner.minutes, inner.days)
	}

	if err := feed.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = feed.GetMinutes(ctx, "ABC", from, from)
	if inner.minutes != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", inner.minutes)
	}
}

func TestCachedFeedWithoutCache(t *testing.T) {
	inner := &countingFeed{}
	feed := NewCachedFeed(inner, nil)
	_, _ = feed.GetMinutes(context.Background(), "ABC", time.Now(), time.Now())
	_, _ = feed.GetMinutes(context.Background(), "ABC", time.Now(), time.Now())
	if inner.minutes != 2 {
		t.Fatalf("expected pass-through, got %d", inner.minutes)
	}
}

type recordingSink struct {
	leaderboards int
	baselines    int
	err          error
}

func (s *recordingSink) Init(context.Context) error { return s.err }
func (s *recordingSink) StoreBaselines(context.Context, string, []models.Baseline) error {
	s.baselines++
	return s.err
}
func (s *recordingSink) StoreLeaderboard(context.Context, models.Leaderboard) error {
	s.leaderboards++
	return s.err
}
func (s *recordingSink) StoreDailyActions(context.Context, string, []models.DailyAction) error {
	return s.err
}
func (s *recordingSink) StoreWalkForward(context.Context, models.WalkForwardResult) error {
	return s.err
}
func (s *recordingSink) Close() error { return nil }

var _ domrepo.ResultSink = (*MultiSink)(nil)
var _ domrepo.ResultSink = (*CHResultSink)(nil)
var _ domrepo.ResultSink = (*KafkaResultSink)(nil)
var _ domrepo.MinuteFeed = (*CHMinuteFeed)(nil)
var _ domrepo.MinuteFeed = (*PGMinuteFeed)(nil)

func TestMultiSinkFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("down")}
	m := NewMultiSink(ok, nil, bad)
	if m.Len() != 2 {
		t.Fatalf("nil sinks must be dropped, got %d", m.Len())
	}
	err := m.StoreLeaderboard(context.Background(), models.Leaderboard{RunID: "r"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ok.leaderboards != 1 || bad.leaderboards != 1 {
		t.Fatalf("every sink must be called, got %d/%d", ok.leaderboards, bad.leaderboards)
	}
	if err := m.StoreBaselines(context.Background(), "r", nil); err != nil || ok.baselines != 0 {
		t.Fatalf("empty baselines must be skipped")
	}
}

type fakePublisher struct {
	topic string
	msgs  []pkgkafka.Message
}

func (p *fakePublisher) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	p.topic = topic
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func TestKafkaSinkChunksDailyActions(t *testing.T) {
	p := &fakePublisher{}
	s := newKafkaResultSink(p, "results", 2)
	actions := make([]models.DailyAction, 5)
	for i := range actions {
		actions[i] = models.DailyAction{Symbol: "ABC", Features: models.MissingFeatures()}
	}
	if err := s.StoreDailyActions(context.Background(), "run-1", actions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.topic != "results" || len(p.msgs) != 3 {
		t.Fatalf("expected 3 chunks on results, got %d on %q", len(p.msgs), p.topic)
	}
	env, ok := p.msgs[2].Value.(ResultEnvelope)
	if !ok || env.Kind != KindDailyActions || env.RunID != "run-1" || string(p.msgs[2].Key) != "run-1" {
		t.Fatalf("unexpected envelope %+v", p.msgs[2])
	}
	if last := env.Payload.([]models.DailyAction); len(last) != 1 {
		t.Fatalf("expected a final chunk of 1, got %d", len(last))
	}
}
