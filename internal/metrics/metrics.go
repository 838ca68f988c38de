package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	queryRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cheatsheet_query_requests_total",
		Help: "Query requests by response status",
	}, []string{"status"})

	upstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cheatsheet_upstream_latency_seconds",
		Help:    "Latency of outbound calls including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"service", "outcome"})

	upstreamRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cheatsheet_upstream_retries_total",
		Help: "Retried outbound call attempts",
	}, []string{"service"})

	searchResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cheatsheet_search_results",
		Help:    "Number of links returned per search",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
	}, []string{"provider"})

	cheatsheetsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cheatsheet_files_written_total",
		Help: "Cheatsheet save attempts by outcome",
	}, []string{"outcome"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(queryRequests, upstreamLatency, upstreamRetries, searchResults, cheatsheetsWritten)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}

func ObserveQuery(status int) {
	ensureRegistered()
	queryRequests.WithLabelValues(http.StatusText(status)).Inc()
}

func ObserveUpstream(service, outcome string, start time.Time) {
	ensureRegistered()
	upstreamLatency.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}

func ObserveRetry(service string) {
	ensureRegistered()
	upstreamRetries.WithLabelValues(service).Inc()
}

func ObserveSearch(provider string, results int) {
	ensureRegistered()
	searchResults.WithLabelValues(provider).Observe(float64(results))
}

func ObserveSave(err error) {
	ensureRegistered()
	if err != nil {
		cheatsheetsWritten.WithLabelValues("error").Inc()
		return
	}
	cheatsheetsWritten.WithLabelValues("ok").Inc()
}
