package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	simulations *prometheus.CounterVec
	skippedDays *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	bestReturn  *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		simulations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratiolab_simulations_total",
				Help: "Total number of simulator runs",
			},
			[]string{"method"},
		),
		skippedDays: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratiolab_skipped_days_total",
				Help: "Days skipped during backtests by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratiolab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		bestReturn: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratiolab_best_total_return",
				Help: "Total return of the top leaderboard row for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratiolab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
	}
}

// RecordSimulation counts one simulator run.
func (r *Recorder) RecordSimulation(method string) {
	r.simulations.WithLabelValues(method).Inc()
}

// RecordSkippedDay counts a day skipped for reason.
func (r *Recorder) RecordSkippedDay(reason string) {
	r.skippedDays.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordBestReturn records the leading total return for a symbol.
func (r *Recorder) RecordBestReturn(symbol string, ret float64) {
	r.bestReturn.WithLabelValues(symbol).Set(ret)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
