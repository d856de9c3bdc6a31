package repository

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
	pkgkafka "RatioLab/pkg/kafka"
)

// batchPublisher is the part of pkg/kafka.Producer the sink needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// ResultEnvelope is the message published for every result kind.
type ResultEnvelope struct {
	Kind      string      `json:"kind"`
	RunID     string      `json:"run_id"`
	Symbol    string      `json:"symbol,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	Payload   interface{} `json:"payload"`
}

// Envelope kinds.
const (
	KindBaselines    = "baselines"
	KindLeaderboard  = "leaderboard"
	KindDailyActions = "daily_actions"
	KindWalkForward  = "walkforward"
)

// KafkaResultSink publishes results keyed by run id, one chunk of at most batchSize
// records per message.
type KafkaResultSink struct {
	producer  batchPublisher
	topic     string
	batchSize int
	now       func() time.Time
}

// NewKafkaResultSink creates a Kafka sink on topic.
func NewKafkaResultSink(producer *pkgkafka.Producer, topic string, batchSize int) *KafkaResultSink {
	return newKafkaResultSink(producer, topic, batchSize)
}

func newKafkaResultSink(p batchPublisher, topic string, batchSize int) *KafkaResultSink {
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &KafkaResultSink{producer: p, topic: topic, batchSize: batchSize, now: time.Now}
}

// Init is a no-op; topics are created by the broker or ops tooling.
func (s *KafkaResultSink) Init(context.Context) error { return nil }

func (s *KafkaResultSink) envelope(kind, runID, symbol string, payload interface{}) pkgkafka.Message {
	return pkgkafka.Message{
		Key: []byte(runID),
		Value: ResultEnvelope{
			Kind:      kind,
			RunID:     runID,
			Symbol:    symbol,
			CreatedAt: s.now().UTC(),
			Payload:   payload,
		},
		Headers: map[string]string{"kind": kind},
	}
}

func (s *KafkaResultSink) StoreBaselines(ctx context.Context, runID string, baselines []models.Baseline) error {
	var msgs []pkgkafka.Message
	for start := 0; start < len(baselines); start += s.batchSize {
		chunk := baselines[start:min(start+s.batchSize, len(baselines))]
		msgs = append(msgs, s.envelope(KindBaselines, runID, chunk[0].Symbol, chunk))
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaResultSink) StoreLeaderboard(ctx context.Context, lb models.Leaderboard) error {
	return s.producer.PublishBatch(ctx, s.topic, []pkgkafka.Message{s.envelope(KindLeaderboard, lb.RunID, lb.Symbol, lb)})
}

func (s *KafkaResultSink) StoreDailyActions(ctx context.Context, runID string, actions []models.DailyAction) error {
	var msgs []pkgkafka.Message
	for start := 0; start < len(actions); start += s.batchSize {
		chunk := actions[start:min(start+s.batchSize, len(actions))]
		msgs = append(msgs, s.envelope(KindDailyActions, runID, chunk[0].Symbol, chunk))
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaResultSink) StoreWalkForward(ctx context.Context, res models.WalkForwardResult) error {
	return s.producer.PublishBatch(ctx, s.topic, []pkgkafka.Message{s.envelope(KindWalkForward, res.RunID, res.Symbol, res)})
}

// Close is a no-op; the producer is shared with the log collector and closed by the app.
func (s *KafkaResultSink) Close() error {
	return nil
}
