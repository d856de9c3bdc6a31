package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"RatioLab/internal/domain/models"
	domrepo "RatioLab/internal/domain/repository"
	pkgkafka "RatioLab/pkg/kafka"
	"RatioLab/pkg/logger"
)

// Job kinds accepted by the worker.
const (
	JobGrid        = "grid"
	JobOracle      = "oracle"
	JobWalkForward = "walkforward"
)

// BacktestJob is one queued run. Exactly the query matching Kind must be set; its fields
// take the same defaults and validation as the HTTP parameters.
type BacktestJob struct {
	ID          string                   `json:"id"`
	Kind        string                   `json:"kind" validate:"required,oneof=grid oracle walkforward"`
	Grid        *models.GridQuery        `json:"grid,omitempty" validate:"required_if=Kind grid"`
	Oracle      *models.OracleQuery      `json:"oracle,omitempty" validate:"required_if=Kind oracle"`
	WalkForward *models.WalkForwardQuery `json:"walkforward,omitempty" validate:"required_if=Kind walkforward"`
}

// JobHandler runs backtest jobs from Kafka. Results reach consumers through the result sink.
type JobHandler struct {
	topic    string
	bt       *Backtester
	metrics  domrepo.Metrics
	log      *logger.Logger
	validate *validator.Validate
}

// NewJobHandler creates a handler for topic.
func NewJobHandler(topic string, bt *Backtester, metrics domrepo.Metrics, log *logger.Logger) *JobHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &JobHandler{
		topic:    topic,
		bt:       bt,
		metrics:  metrics,
		log:      log,
		validate: validator.New(),
	}
}

func (h *JobHandler) Topic() string { return h.topic }

// Handle decodes and runs one job. Malformed or invalid jobs return an error so the
// consumer can dead-letter them.
func (h *JobHandler) Handle(ctx context.Context, b []byte) error {
	job, err := h.decode(b)
	if err != nil {
		h.metrics.RecordError("job_decode")
		return err
	}
	start := time.Now()
	if err := h.run(ctx, job); err != nil {
		h.metrics.RecordError("job_" + job.Kind)
		h.log.Error("backtest job failed",
			logger.String("job_id", job.ID),
			logger.String("kind", job.Kind),
			logger.Error(err))
		return fmt.Errorf("job %s (%s): %w", job.ID, job.Kind, err)
	}
	h.log.Info("backtest job done",
		logger.String("job_id", job.ID),
		logger.String("kind", job.Kind),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (h *JobHandler) decode(b []byte) (BacktestJob, error) {
	var job BacktestJob
	if err := json.Unmarshal(b, &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	if err := setJobDefaults(&job); err != nil {
		return job, fmt.Errorf("job defaults: %w", err)
	}
	if err := h.validate.Struct(job); err != nil {
		return job, fmt.Errorf("validate job: %w", err)
	}
	return job, nil
}

// setJobDefaults fills whichever query the job carries.
func setJobDefaults(job *BacktestJob) error {
	if job.Grid != nil {
		if err := defaults.Set(job.Grid); err != nil {
			return err
		}
	}
	if job.Oracle != nil {
		if err := defaults.Set(job.Oracle); err != nil {
			return err
		}
	}
	if job.WalkForward != nil {
		if err := defaults.Set(job.WalkForward); err != nil {
			return err
		}
	}
	return nil
}

func (h *JobHandler) run(ctx context.Context, job BacktestJob) error {
	def := h.bt.Defaults()
	switch job.Kind {
	case JobGrid:
		req, err := GridRequestFromQuery(*job.Grid, def)
		if err != nil {
			return err
		}
		_, err = h.bt.RunGrid(ctx, req)
		return err
	case JobOracle:
		req, err := ActionsRequestFromQuery(*job.Oracle, def)
		if err != nil {
			return err
		}
		_, err = h.bt.DailyBest(ctx, req)
		return err
	case JobWalkForward:
		req, err := WalkForwardRequestFromQuery(*job.WalkForward, def)
		if err != nil {
			return err
		}
		_, err = h.bt.WalkForward(ctx, req)
		return err
	}
	return models.NewConfigError("kind", "unknown job kind %q", job.Kind)
}

var _ pkgkafka.MessageHandler = (*JobHandler)(nil)
