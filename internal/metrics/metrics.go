package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's Prometheus collectors. Each instance owns
// its registry.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts  *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
	TokenRejects   prometheus.Counter
	AuthzDenials   *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpad_login_attempts_total",
			Help: "Login attempts by channel (web, api) and result.",
		}, []string{"channel", "result"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpad_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		TokenRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quillpad_token_rejections_total",
			Help: "Bearer tokens rejected as missing, malformed, forged or expired.",
		}),
		AuthzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpad_authorization_denials_total",
			Help: "Ownership checks that denied access, by resource.",
		}, []string{"resource"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quillpad_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LoginAttempts,
		m.Registrations,
		m.TokenRejects,
		m.AuthzDenials,
		m.RequestLatency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) Login(channel string, ok bool) {
	m.LoginAttempts.WithLabelValues(channel, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
