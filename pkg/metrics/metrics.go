// Package metrics defines the Prometheus metrics exported by the
// verified-messages server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Post outcomes recorded by PostOutcomes.
const (
	OutcomePosted           = "posted"
	OutcomeAlreadyPosted    = "already_posted"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeError            = "error"
)

// Metrics contains all Prometheus metrics for the server
type Metrics struct {
	// Verification metrics
	Verifications *prometheus.CounterVec

	// Post metrics
	PostOutcomes   *prometheus.CounterVec
	CommitDuration prometheus.Histogram
	EventSequence  prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	RateLimited  prometheus.Counter
}

// NewMetrics initializes and registers metrics with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers metrics with a custom registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verified_messages_verifications_total",
			Help: "The total number of signature verifications, by result",
		},
			[]string{"result"},
		),
		PostOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verified_messages_post_attempts_total",
			Help: "The total number of post-message attempts, by outcome",
		},
			[]string{"outcome"},
		),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verified_messages_commit_duration_seconds",
			Help:    "Time spent committing a posted message to the registry",
			Buckets: prometheus.DefBuckets,
		}),
		EventSequence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "verified_messages_event_sequence",
			Help: "The sequence number of the most recently committed event",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verified_messages_http_requests_total",
			Help: "The total number of HTTP requests, by route and status code",
		},
			[]string{"route", "code"},
		),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "verified_messages_post_rate_limited_total",
			Help: "The total number of post requests rejected by the rate limiter",
		}),
	}
}

// RecordVerification counts a verification result. Safe on a nil receiver.
func (m *Metrics) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

// RecordPost counts a post outcome. Safe on a nil receiver.
func (m *Metrics) RecordPost(outcome string) {
	if m == nil {
		return
	}
	m.PostOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveCommit records a successful commit. Safe on a nil receiver.
func (m *Metrics) ObserveCommit(seconds float64, sequence uint64) {
	if m == nil {
		return
	}
	m.CommitDuration.Observe(seconds)
	m.EventSequence.Set(float64(sequence))
}
