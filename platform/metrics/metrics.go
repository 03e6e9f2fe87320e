// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LeadIntake      *prometheus.CounterVec
	LeadTransitions *prometheus.CounterVec
	ChaseJobs       *prometheus.CounterVec
	SMSSend         *prometheus.CounterVec
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LeadIntake: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_intake_total",
				Help: "Lead intake attempts by source and outcome (created, duplicate, error)",
			},
			[]string{"source", "outcome"},
		),
		LeadTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_transitions_total",
				Help: "Lead status transitions by target status",
			},
			[]string{"to"},
		),
		ChaseJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chase_jobs_total",
				Help: "Chase job executions by phase and outcome (sent, skipped, failed)",
			},
			[]string{"phase", "outcome"},
		),
		SMSSend: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_send_total",
				Help: "Outbound SMS attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// IncIntake counts one intake outcome. Safe on a nil receiver.
func (m *Metrics) IncIntake(source, outcome string) {
	if m == nil {
		return
	}
	m.LeadIntake.WithLabelValues(source, outcome).Inc()
}

// IncTransition counts a status transition. Safe on a nil receiver.
func (m *Metrics) IncTransition(to string) {
	if m == nil {
		return
	}
	m.LeadTransitions.WithLabelValues(to).Inc()
}

// IncChase counts a chase job outcome. Safe on a nil receiver.
func (m *Metrics) IncChase(phase, outcome string) {
	if m == nil {
		return
	}
	m.ChaseJobs.WithLabelValues(phase, outcome).Inc()
}

// IncSMS counts an outbound SMS attempt. Safe on a nil receiver.
func (m *Metrics) IncSMS(outcome string) {
	if m == nil {
		return
	}
	m.SMSSend.WithLabelValues(outcome).Inc()
}
