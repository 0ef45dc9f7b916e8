package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "peptrackr"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Store metrics
	StoreOps        *prometheus.CounterVec
	StoreOpDuration *prometheus.HistogramVec

	// Request metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RESPCommands        *prometheus.CounterVec
}

// NewRegistry creates a registry with the Go runtime and process collectors
// plus the application metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and result.",
		}, []string{"op", "result"}),

		StoreOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		RESPCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resp",
			Name:      "commands_total",
			Help:      "RESP commands by command and result.",
		}, []string{"command", "result"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.StoreOps,
		r.StoreOpDuration,
		r.HTTPRequests,
		r.HTTPRequestDuration,
		r.RESPCommands,
	)

	return r
}

// Registerer exposes the underlying registry for components that register
// their own metrics (storage engines).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveOp records one store operation.
func (r *Registry) ObserveOp(op, result string, elapsed time.Duration) {
	r.StoreOps.WithLabelValues(op, result).Inc()
	r.StoreOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveHTTP records one HTTP request. route is the matched pattern, never
// the raw path, to bound label cardinality.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCommand records one RESP command.
func (r *Registry) ObserveCommand(command, result string) {
	r.RESPCommands.WithLabelValues(command, result).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
