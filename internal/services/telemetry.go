package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeScored  = "scored"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Telemetry records processing metrics. A nil *Telemetry is a no-op.
type Telemetry struct {
	processed  *prometheus.CounterVec
	duration   prometheus.Histogram
	fallbacks  prometheus.Counter
	queueDepth prometheus.Gauge
}

func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		processed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_submissions_processed_total",
				Help: "Submissions processed, by outcome.",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scoring_process_duration_seconds",
				Help:    "Wall time of one fetch, validate, score and persist run.",
				Buckets: prometheus.DefBuckets,
			},
		),
		fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scoring_metric_fallback_total",
				Help: "Competitions scored with F1 because their metric was not recognised.",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scoring_worker_queue_depth",
				Help: "Submissions waiting in the worker queue.",
			},
		),
	}
}

func (t *Telemetry) ObserveProcess(outcome string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.processed.WithLabelValues(outcome).Inc()
	t.duration.Observe(elapsed.Seconds())
}

func (t *Telemetry) MetricFallback() {
	if t == nil {
		return
	}
	t.fallbacks.Inc()
}

func (t *Telemetry) SetQueueDepth(depth int) {
	if t == nil {
		return
	}
	t.queueDepth.Set(float64(depth))
}
