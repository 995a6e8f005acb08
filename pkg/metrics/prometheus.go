package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memo"

// Registry holds every collector exported by this process. It is served by
// Handler on the debug listener.
var Registry = prometheus.NewRegistry()

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Memo submission attempts by outcome and result code.",
		},
		[]string{"outcome", "code"},
	)

	submissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time spent signing and sending a memo transaction.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled by route and status code.",
		},
		[]string{"route", "status"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live submission sessions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		submissionsTotal,
		submissionDuration,
		httpRequestsTotal,
		activeSessions,
	)
}

// Handler serves Registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveSubmission records the outcome of a single submission. code is empty
// for successful submissions.
func ObserveSubmission(outcome, code string, elapsed time.Duration) {
	submissionsTotal.WithLabelValues(outcome, code).Inc()
	submissionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SetActiveSessions reports the current number of live sessions
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
