package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aura-events/checkin/internal/models"
)

// Metrics holds the check-in Prometheus collectors.
type Metrics struct {
	Attempts      *prometheus.CounterVec
	Duration      prometheus.Histogram
	StorageErrors *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkin_duration_seconds",
			Help:    "Time to resolve and apply one check-in",
			Buckets: prometheus.DefBuckets,
		}),
		StorageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_storage_errors_total",
			Help: "Storage failures during check-in by pipeline stage",
		}, []string{"stage"}),
	}
}

// ObserveCheckIn records one completed attempt.
func (m *Metrics) ObserveCheckIn(outcome models.Outcome, elapsed time.Duration) {
	m.Attempts.WithLabelValues(string(outcome)).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

// StorageError records one failed attempt.
func (m *Metrics) StorageError(stage string) {
	m.StorageErrors.WithLabelValues(stage).Inc()
}
