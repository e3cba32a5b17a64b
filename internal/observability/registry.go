package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so that components receive their metrics sink by injection.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Selection metrics
	IncrementSelections(result string)
	RecordSelectionLatency(duration time.Duration)
	RecordCandidates(n int)
	IncrementNoBanner()
	IncrementSuppressed()

	// Event tracking metrics
	IncrementEvent(eventType string)
	IncrementEventPersistErrors()

	// Session metrics
	IncrementSessionPersistErrors()
}

// Selection result labels.
const (
	SelectionResultSelected     = "selected"
	SelectionResultNotFound     = "not_found"
	SelectionResultInvalidState = "invalid_state"
	SelectionResultError        = "error"
)

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Selection metrics
func (r *PrometheusRegistry) IncrementSelections(result string) {
	SelectionCount.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) RecordSelectionLatency(duration time.Duration) {
	SelectionDuration.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) RecordCandidates(n int) {
	CandidateCount.Observe(float64(n))
}

func (r *PrometheusRegistry) IncrementNoBanner() {
	NoBannerCount.Inc()
}

func (r *PrometheusRegistry) IncrementSuppressed() {
	SuppressedCount.Inc()
}

// Event tracking metrics
func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) IncrementEventPersistErrors() {
	EventPersistErrors.Inc()
}

func (r *PrometheusRegistry) IncrementSessionPersistErrors() {
	SessionPersistErrors.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Selection metrics
func (r *NoOpRegistry) IncrementSelections(result string)             {}
func (r *NoOpRegistry) RecordSelectionLatency(duration time.Duration) {}
func (r *NoOpRegistry) RecordCandidates(n int)                        {}
func (r *NoOpRegistry) IncrementNoBanner()                            {}
func (r *NoOpRegistry) IncrementSuppressed()                          {}

// Event tracking metrics
func (r *NoOpRegistry) IncrementEvent(eventType string) {}
func (r *NoOpRegistry) IncrementEventPersistErrors()    {}

func (r *NoOpRegistry) IncrementSessionPersistErrors() {}
