// Package metrics exposes Prometheus counters for logins, roster changes and
// request latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login results
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Roster entities and operations
const (
	EntityTherapist  = "therapist"
	EntityChild      = "child"
	EntityAssignment = "assignment"

	OpCreate   = "create"
	OpDelete   = "delete"
	OpAssign   = "assign"
	OpUnassign = "unassign"
	OpImport   = "import"
)

// Metrics owns a registry so tests and multiple servers never share state.
type Metrics struct {
	registry      *prometheus.Registry
	loginAttempts *prometheus.CounterVec
	rosterChanges *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
}

// New registers the therapro collectors plus the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "therapro_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rosterChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "therapro_roster_changes_total",
			Help: "Successful roster changes by entity and operation.",
		}, []string{"entity", "op"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "therapro_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	m.registry.MustRegister(
		m.loginAttempts,
		m.rosterChanges,
		m.requestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Login counts one login attempt. A nil receiver is a no-op.
func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	result := LoginFailure
	if ok {
		result = LoginSuccess
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

// RosterChange counts n changes of one kind.
func (m *Metrics) RosterChange(entity, op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rosterChanges.WithLabelValues(entity, op).Add(float64(n))
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTime.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
