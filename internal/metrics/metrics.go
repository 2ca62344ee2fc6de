// Package metrics exposes Prometheus collectors for the scrapper engine.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resource outcomes.
const (
	ResourceStored  = "stored"
	ResourceSkipped = "skipped"
	ResourceDryRun  = "dry_run"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_pages_total",
			Help: "Total number of pages processed, labeled by site and status.",
		},
		[]string{"site", "status"},
	)

	resourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_resources_total",
			Help: "Total number of extracted resources, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	pageReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_page_reloads_total",
			Help: "Total number of pages reloaded after a failed processing attempt.",
		},
		[]string{"site"},
	)

	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_fetch_attempts_total",
			Help: "Total number of raw fetch attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	fetchCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_fetch_cache_total",
			Help: "Response cache lookups, labeled by result.",
		},
		[]string{"result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapper_http_requests_total",
			Help: "Total number of operator HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrapper_http_request_duration_seconds",
			Help:    "Histogram of operator HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a processed page.
func ObservePage(site, status string) {
	pagesTotal.WithLabelValues(siteLabel(site), status).Inc()
}

// ObserveResource counts a resource outcome.
func ObserveResource(site, outcome string) {
	resourcesTotal.WithLabelValues(siteLabel(site), outcome).Inc()
}

// ObservePageReload counts a page reload.
func ObservePageReload(site string) {
	pageReloadsTotal.WithLabelValues(siteLabel(site)).Inc()
}

// ObserveFetchAttempt counts one raw fetch attempt.
func ObserveFetchAttempt(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCacheLookup counts a response cache lookup.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	fetchCacheTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records metrics for an operator HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func siteLabel(site string) string {
	site = strings.ToLower(strings.TrimSpace(site))
	if site == "" {
		return "adhoc"
	}
	return site
}
