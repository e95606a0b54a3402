// Package metrics holds the Prometheus collectors for the gateway
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "irondav"

// Metrics groups every collector the server records into
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts requests by method and status code
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes handler latency by method
	RequestDuration *prometheus.HistogramVec
	// BackendErrorsTotal counts failed backend calls by error kind
	BackendErrorsTotal *prometheus.CounterVec
	// BytesTotal counts body bytes by direction: upload/download
	BytesTotal *prometheus.CounterVec
}

// New registers the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of WebDAV requests",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "WebDAV request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BackendErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "errors_total",
			Help:      "Total number of failed object store calls",
		}, []string{"kind"}),
		BytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "body_bytes_total",
			Help:      "Object body bytes moved through the gateway",
		}, []string{"direction"}),
	}
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.BackendErrorsTotal,
		m.BytesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// BackendError counts a failed backend call
func (m *Metrics) BackendError(kind string) {
	if m == nil {
		return
	}
	m.BackendErrorsTotal.WithLabelValues(kind).Inc()
}

// AddBytes counts transferred body bytes
func (m *Metrics) AddBytes(direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesTotal.WithLabelValues(direction).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
