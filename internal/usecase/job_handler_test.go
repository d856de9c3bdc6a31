package usecase

import (
	"context"
	"testing"

	"RatioLab/pkg/logger"
)

func TestJobHandlerRunsGrid(t *testing.T) {
	sink := &fakeSink{}
	b := newTestBacktester(t, swingFeed(), sink)
	h := NewJobHandler("ratiolab.jobs", b, nil, logger.Nop())

	if h.Topic() != "ratiolab.jobs" {
		t.Fatalf("topic = %q", h.Topic())
	}
	job := []byte(`{"id":"j1","kind":"grid","grid":{"symbol":"TEST","from":"2024-02-07","to":"2024-02-14","lookback":2,"buy_min":1,"buy_max":1,"sell_min":1,"sell_max":1}}`)
	if err := h.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sink.leaderboard) != 1 {
		t.Fatalf("leaderboards stored = %d, want 1", len(sink.leaderboard))
	}
	lb := sink.leaderboard[0]
	if len(lb.Rows) != 1 || lb.Rows[0].Method != "VWAP_RATIO" {
		t.Fatalf("rows = %+v, want the default single VWAP_RATIO cell", lb.Rows)
	}
}

func TestJobHandlerRejectsInvalidJobs(t *testing.T) {
	h := NewJobHandler("ratiolab.jobs", newTestBacktester(t, swingFeed(), nil), nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"kind":`},
		{"unknown kind", `{"kind":"replay"}`},
		{"missing query", `{"kind":"oracle"}`},
		{"bad date", `{"kind":"grid","grid":{"symbol":"TEST","from":"02/07/2024","to":"2024-02-14"}}`},
		{"reversed range", `{"kind":"grid","grid":{"symbol":"TEST","from":"2024-02-14","to":"2024-02-07"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Handle(context.Background(), []byte(tt.body)); err == nil {
				t.Fatalf("Handle(%s) succeeded, want error", tt.body)
			}
		})
	}
}
