// Package metrics exposes the crawl engine's and rate limiter's counters as
// Prometheus collectors. Metrics are package-level vars registered against
// a dedicated Registry (not the global default) so a process embedding this
// module never collides with its own Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the dedicated registry every collector below is registered
// against.
var Registry = prometheus.NewRegistry()

var (
	// RequestsTotal counts crawl engine fetch attempts by platform and
	// outcome (success, forbidden, rate_limited, circuit_open). Duplicates
	// and robots.txt blocks are counted by DuplicatesTotal and
	// RobotsBlockedTotal instead.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_requests_total",
			Help: "Total crawl engine fetch attempts by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// DuplicatesTotal counts URL and content-hash duplicate rejections.
	DuplicatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_duplicates_total",
			Help: "Total duplicate URL or content rejections by platform",
		},
		[]string{"platform"},
	)

	// RobotsBlockedTotal counts robots.txt disallow decisions.
	RobotsBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_robots_blocked_total",
			Help: "Total requests skipped due to robots.txt disallow",
		},
		[]string{"platform"},
	)

	// OpenCircuitsGauge reports the number of hosts currently short-circuited
	// by the crawl engine's consecutive-failure breaker.
	OpenCircuitsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_open_circuits",
			Help: "Number of hosts currently circuit-open due to consecutive failures",
		},
		[]string{"platform"},
	)

	// AdaptiveFillRateGauge reports the adaptive rate limiter multiplier
	// averaged across tracked hosts (under the platform label "all"), a proxy
	// for how aggressively hosts are being throttled.
	AdaptiveFillRateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_adaptive_multiplier",
			Help: "Current adaptive wait multiplier averaged across tracked hosts",
		},
		[]string{"platform"},
	)

	// AnalysisDuration records run_complete_analysis wall-clock time by
	// stage (collection, analysis, insights, recommendations).
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_stage_duration_seconds",
			Help:    "Duration of each orchestrator stage",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

func init() {
	Registry.MustRegister(
		RequestsTotal,
		DuplicatesTotal,
		RobotsBlockedTotal,
		OpenCircuitsGauge,
		AdaptiveFillRateGauge,
		AnalysisDuration,
	)
}

// Handler returns the HTTP handler exposing every collector above on
// whatever mux path the caller mounts it at (e.g. "/metrics").
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
