// Package obs holds the gateway's Prometheus collectors. Every upstream
// call is counted and timed by provider and outcome.
package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bedrocktools/mcgate/internal/apierr"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcgate_upstream_requests_total",
			Help: "Total upstream HTTP requests by provider and status.",
		},
		[]string{"upstream", "status"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcgate_upstream_request_duration_seconds",
			Help:    "Upstream request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	versionFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcgate_version_fallbacks_total",
			Help: "Times a contract-version rung was rejected and the next rung tried.",
		},
		[]string{"upstream"},
	)

	loginChainsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcgate_login_chains_total",
			Help: "Credential chain runs by entry (device/refresh) and outcome (ok or the failure kind).",
		},
		[]string{"entry", "outcome"},
	)
)

var registerOnce sync.Once

// Init registers the collectors in the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			upstreamRequestsTotal,
			upstreamRequestDuration,
			versionFallbacksTotal,
			loginChainsTotal,
		)
	})
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream records one upstream round trip. A zero status means the
// request never got a response (network failure, timeout).
func ObserveUpstream(upstream string, status int, elapsed time.Duration) {
	upstreamRequestsTotal.WithLabelValues(upstream, strconv.Itoa(status)).Inc()
	upstreamRequestDuration.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

// CountVersionFallback records one rejected contract-version rung.
func CountVersionFallback(upstream string) {
	versionFallbacksTotal.WithLabelValues(upstream).Inc()
}

// CountLoginChain records a completed or failed credential chain run.
// Failures are labelled with their error kind so a burst of pending polls
// does not read as an outage.
func CountLoginChain(entry string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
	}
	loginChainsTotal.WithLabelValues(entry, outcome).Inc()
}
