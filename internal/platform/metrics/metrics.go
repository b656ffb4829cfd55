// Package metrics records RED metrics (rate, errors, duration) for entity
// manager operations and exposes them in the Prometheus format.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

const namespace = "caremgr"

type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	denials  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "calls_total",
			Help:      "Manager operations by entity, operation and result code.",
		}, []string{"entity", "op", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "duration_seconds",
			Help:      "Manager operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "op"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "denials_total",
			Help:      "Ownership checks that failed.",
		}, []string{"entity", "op"}),
	}
	reg.MustRegister(m.calls, m.duration, m.denials)
	return m
}

// Record starts timing op and returns a func that records the outcome and
// hands err back unchanged. A nil *Metrics records nothing.
func (m *Metrics) Record(entity, op string) func(error) error {
	if m == nil {
		return func(err error) error { return err }
	}
	start := time.Now()
	return func(err error) error {
		code := "ok"
		if err != nil {
			code = apperr.ErrorCode(err)
		}
		m.calls.WithLabelValues(entity, op, code).Inc()
		m.duration.WithLabelValues(entity, op).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) Denied(entity, op string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(entity, op).Inc()
}

// Handler serves the collectors of g at /metrics.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
