// Package metrics exposes Prometheus collectors for the feed sync service.
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
	feedSyncsTotal             *prometheus.CounterVec
	feedFetchBytesTotal        *prometheus.CounterVec
	storyFetchesTotal          *prometheus.CounterVec
	harborRequestsTotal        *prometheus.CounterVec
	harborRequestDurationSecs  *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		feedSyncsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedsync_feed_syncs_total",
				Help: "Total number of feed sync attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		feedFetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedsync_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		storyFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedsync_story_fetches_total",
				Help: "Total number of story enrichment attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		harborRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedsync_harbor_requests_total",
				Help: "Total number of result sink RPC calls, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		harborRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedsync_harbor_request_duration_seconds",
				Help:    "Histogram of result sink RPC latencies, labeled by method.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method"},
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

// ObserveFeedSync increments the feed sync counters. It is a no-op until
// Init has run, so library callers never need to care about registration.
func ObserveFeedSync(site string, outcome string, bytesFetched int) {
	if feedSyncsTotal == nil {
		return
	}
	sanitizedSite := SanitizeSite(site)
	feedSyncsTotal.WithLabelValues(sanitizedSite, outcome).Inc()
	if bytesFetched > 0 {
		feedFetchBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveStoryFetch increments the story enrichment counter.
func ObserveStoryFetch(outcome string) {
	if storyFetchesTotal == nil {
		return
	}
	storyFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveHarborRequest records one result sink RPC call.
func ObserveHarborRequest(method string, code int, duration time.Duration) {
	if harborRequestsTotal == nil {
		return
	}
	harborRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	harborRequestDurationSecs.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
