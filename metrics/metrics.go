// Package metrics exposes Prometheus instrumentation for refresh cycles,
// credential checks and outgoing Bazarr API requests.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

var (
	// Refresh Metrics
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazarrwatch_refresh_total",
			Help: "Total number of refresh cycles by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bazarrwatch_refresh_duration_seconds",
			Help:    "Duration of refresh cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazarrwatch_refresh_errors_total",
			Help: "Failed refresh cycles by endpoint",
		},
		[]string{"endpoint"},
	)

	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarrwatch_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		},
	)

	// Snapshot Metrics
	WantedMovies = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarrwatch_wanted_movies",
			Help: "Movies waiting for subtitles",
		},
	)

	WantedEpisodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarrwatch_wanted_episodes",
			Help: "Episodes waiting for subtitles",
		},
	)

	HealthIssues = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarrwatch_health_issues",
			Help: "Number of health issues reported by Bazarr",
		},
	)

	// Credential Metrics
	ValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazarrwatch_validation_total",
			Help: "Credential checks by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid_api_key", "cannot_connect"
	)

	// API Request Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazarrwatch_api_request_duration_seconds",
			Help:    "Duration of Bazarr API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)

	APIRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarrwatch_api_requests_in_flight",
			Help: "Bazarr API requests currently in flight",
		},
	)
)

// Observer records coordinator diagnostics into the package metrics
type Observer struct{}

// ValidationFinished counts a credential check
func (Observer) ValidationFinished(outcome bazarr.Outcome) {
	ValidationTotal.WithLabelValues(outcome.String()).Inc()
}

// RefreshSucceeded records a stored snapshot
func (Observer) RefreshSucceeded(elapsed time.Duration, snap bazarr.Snapshot) {
	RefreshTotal.WithLabelValues("success").Inc()
	RefreshDuration.Observe(elapsed.Seconds())
	LastSuccess.SetToCurrentTime()

	WantedMovies.Set(float64(snap.WantedMovies))
	WantedEpisodes.Set(float64(snap.WantedEpisodes))
	HealthIssues.Set(float64(len(snap.HealthIssues)))
}

// RefreshFailed records a failed cycle; snapshot gauges keep their last values
func (Observer) RefreshFailed(elapsed time.Duration, err error) {
	RefreshTotal.WithLabelValues("failure").Inc()
	RefreshDuration.Observe(elapsed.Seconds())

	endpoint := "unknown"
	var fetchErr *bazarr.FetchError
	if errors.As(err, &fetchErr) {
		endpoint = fetchErr.Endpoint
	}
	RefreshErrors.WithLabelValues(endpoint).Inc()
}

// InstrumentTransport wraps next so outgoing Bazarr requests are measured
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(APIRequestsInFlight,
		promhttp.InstrumentRoundTripperDuration(APIRequestDuration, next),
	)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
