// Package metrics exposes Prometheus collectors for HTTP traffic and the
// borrow and session use cases.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "library"

// Registry holds every collector of the process.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OperationsTotal     *prometheus.CounterVec
	RevokedPurgedTotal  prometheus.Counter
}

// NewRegistry builds a private registry with the Go and process collectors
// plus the application collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Use case executions by outcome code",
		}, []string{"operation", "outcome"}),
		RevokedPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_tokens_purged_total",
			Help:      "Expired revocation ledger rows deleted by the sweeper",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
		r.OperationsTotal,
		r.RevokedPurgedTotal,
	)
	return r
}

// Operation counts one execution of a use case. outcome is "ok" or the
// error code returned to the client.
func (r *Registry) Operation(name, outcome string) {
	r.OperationsTotal.WithLabelValues(name, outcome).Inc()
}

// Purged adds n purged ledger rows.
func (r *Registry) Purged(n int64) {
	r.RevokedPurgedTotal.Add(float64(n))
}

// Middleware records request count and latency per route template.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			labels := prometheus.Labels{"method": c.Request().Method, "path": path, "status": strconv.Itoa(status)}
			r.HTTPRequestsTotal.With(labels).Inc()
			r.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
