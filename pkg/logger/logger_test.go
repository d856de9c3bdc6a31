package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	l := NewWriter(&bytes.Buffer{})
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Warn("baseline undefined", String("symbol", "ABC"))
	}
	l.Error("feed failed", Error(context.Canceled))
	l.Info("not collected")
	l.RemoveCollector()

	if len(pub.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(pub.batches))
	}
	batch := pub.batches[0]
	if pub.topic != "logs" || len(batch) != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch[0].Message != "baseline undefined" || batch[0].Count != 3 || batch[0].Level != "warn" {
		t.Fatalf("expected aggregated warn first, got %+v", batch[0])
	}
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("warn", "a", nil, "x.go:1")
	c.AddLog("warn", "b", nil, "x.go:2")
	c.Close()
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected a threshold flush, got %+v", pub.batches)
	}
}

func TestFloatFieldNaN(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)
	l.Info("value", Float("ret", math.NaN()), Float("ok", 1.5))
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid json, got %v: %s", err, buf.String())
	}
	if m["ret"] != "NaN" || m["ok"] != 1.5 {
		t.Fatalf("unexpected fields %v", m)
	}
}

func TestWithStampsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("run_id", "r1"))
	l.Info("hello", Int("n", 2))
	var m map[string]interface{}
	_ = json.Unmarshal(buf.Bytes(), &m)
	if m["run_id"] != "r1" || m["n"] != float64(2) {
		t.Fatalf("unexpected fields %v", m)
	}
}
