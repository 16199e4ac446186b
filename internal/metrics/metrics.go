// Package metrics exposes Prometheus collectors for capture sessions and
// classifier uploads.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signcap"

// Upload outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeAppError    = "app_error"
	OutcomeTransport   = "transport_error"
	OutcomeRecordError = "record_error"
)

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions by outcome",
		},
		[]string{"outcome"},
	)

	triggersIgnoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_ignored_total",
			Help:      "Trigger activations that did not start a session",
		},
		[]string{"state"},
	)

	clipBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clip_bytes",
			Help:      "Size of assembled clips in bytes",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
	)

	uploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Duration of classifier uploads in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	allMetrics = []prometheus.Collector{
		sessionsTotal,
		triggersIgnoredTotal,
		clipBytes,
		uploadDuration,
	}
)

// Register adds all collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range allMetrics {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func RecordSession(outcome string) {
	sessionsTotal.WithLabelValues(outcome).Inc()
}

func RecordIgnoredTrigger(state string) {
	triggersIgnoredTotal.WithLabelValues(state).Inc()
}

func RecordClip(size int) {
	clipBytes.Observe(float64(size))
}

func RecordUpload(outcome string, durationSeconds float64) {
	uploadDuration.WithLabelValues(outcome).Observe(durationSeconds)
}
