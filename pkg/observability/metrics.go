package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Token cache metrics
	// Note: lookups use a single bounded label to keep the hot path cheap
	tokenCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_token_cache_lookups_total",
		Help: "Total number of access token cache lookups",
	}, []string{"result"}) // hit, miss

	tokenFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_token_fetches_total",
		Help: "Total number of outbound access token requests",
	}, []string{"status"}) // success, failure

	// Endpoint dispatch metrics
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_requests_total",
		Help: "Total number of M-Pesa API requests by endpoint and outcome",
	}, []string{
		"endpoint", // b2c, express, ...
		"outcome",  // success, network, unexpected_response_shape, remote, auth
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "mpesa_request_duration_seconds",
		Help: "Duration of M-Pesa API requests in seconds, including token resolution",
		// Buckets: 50ms to 30s
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint"})
)

// RecordTokenLookup records a token cache hit or miss
func RecordTokenLookup(hit bool) {
	if hit {
		tokenCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	tokenCacheLookups.WithLabelValues("miss").Inc()
}

// RecordTokenFetch records the result of an outbound token request
func RecordTokenFetch(err error) {
	if err != nil {
		tokenFetches.WithLabelValues("failure").Inc()
		return
	}
	tokenFetches.WithLabelValues("success").Inc()
}

// RecordRequest records a completed endpoint dispatch
func RecordRequest(endpoint, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
