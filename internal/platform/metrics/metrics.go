// Package metrics holds the prometheus registry and shared instrument vectors
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide prometheus registry.
// Instruments register here rather than on the default global so tests can
// swap it without cross-package interference.
var Registry = prometheus.NewRegistry()

// RequestsTotal counts outbound forge requests by host, method and status
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ossmk_requests_total",
		Help: "Outbound forge HTTP requests.",
	},
	[]string{"host", "method", "status"},
)

// RequestLatency observes outbound forge request latency by host
var RequestLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ossmk_request_latency_seconds",
		Help:    "Outbound forge HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"host"},
)

func init() {
	Registry.MustRegister(
		RequestsTotal,
		RequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveRequest records one outbound request outcome
func ObserveRequest(host, method string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(host, method, strconv.Itoa(status)).Inc()
	RequestLatency.WithLabelValues(host).Observe(elapsed.Seconds())
}

// Handler serves the registry in prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
