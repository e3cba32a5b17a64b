package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bannerrotator_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bannerrotator_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// selection attempts labelled by outcome
	SelectionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bannerrotator_selections_total",
			Help: "Total banner selections by outcome",
		},
		[]string{"result"},
	)

	// time spent filtering and picking a banner
	SelectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bannerrotator_selection_duration_seconds",
			Help:    "Duration of banner selection",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// size of the eligible candidate set per selection
	CandidateCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bannerrotator_candidates",
			Help:    "Number of eligible banners considered per selection",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// number of requests that produced no banner
	NoBannerCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bannerrotator_no_banner_total",
			Help: "Total banner requests answered with no content",
		},
	)

	// banners withheld because the session already saw them
	SuppressedCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bannerrotator_suppressed_total",
			Help: "Total selections suppressed by session history",
		},
	)

	// number of events recorded, labelled by type
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bannerrotator_events_total",
			Help: "Total view and click events recorded",
		},
		[]string{"type"},
	)

	// analytics writes that failed after the counter update succeeded
	EventPersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bannerrotator_event_persist_errors_total",
			Help: "Total analytics event persistence errors",
		},
	)

	// session saves that failed
	SessionPersistErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bannerrotator_session_persist_errors_total",
			Help: "Total session persistence errors",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		SelectionCount,
		SelectionDuration,
		CandidateCount,
		NoBannerCount,
		SuppressedCount,
		EventCount,
		EventPersistErrors,
		SessionPersistErrors,
	)
}
