// Package metrics exposes Prometheus collectors for the job tracker service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapePagesTotal           *prometheus.CounterVec
	postingUpsertsTotal        *prometheus.CounterVec
	postingsDeactivatedTotal   prometheus.Counter
	scrapeRunsTotal            *prometheus.CounterVec
	duplicateGroupsTotal       prometheus.Counter
	postingsSupersededTotal    prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapePagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtracker_pages_total",
				Help: "Total number of listing pages fetched, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		postingUpsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtracker_posting_upserts_total",
				Help: "Total posting observations applied, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		postingsDeactivatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobtracker_postings_deactivated_total",
				Help: "Total postings marked absent by completed crawl sweeps.",
			},
		)

		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtracker_runs_total",
				Help: "Total scrape runs, labeled by final status.",
			},
			[]string{"status"},
		)

		duplicateGroupsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobtracker_duplicate_groups_total",
				Help: "Total duplicate groups resolved.",
			},
		)

		postingsSupersededTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobtracker_postings_superseded_total",
				Help: "Total postings superseded by a duplicate group canonical.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for one fetched listing page.
func ObservePage(site string, status string) {
	scrapePagesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveUpsert increments the upsert counter for the given outcome.
func ObserveUpsert(outcome string) {
	postingUpsertsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweep adds the number of postings a completed sweep deactivated.
func ObserveSweep(deactivated int) {
	if deactivated > 0 {
		postingsDeactivatedTotal.Add(float64(deactivated))
	}
}

// ObserveRun increments the run counter for the given final status.
func ObserveRun(status string) {
	scrapeRunsTotal.WithLabelValues(status).Inc()
}

// ObserveDuplicateGroup records one resolved group and its superseded members.
func ObserveDuplicateGroup(superseded int) {
	duplicateGroupsTotal.Inc()
	if superseded > 0 {
		postingsSupersededTotal.Add(float64(superseded))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
