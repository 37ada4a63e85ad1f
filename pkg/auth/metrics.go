package auth

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/authsync/pkg/backend"
)

const namespace = "authsync"

// Completion outcomes.
const (
	outcomeApplied  = "applied"
	outcomeStale    = "stale"
	outcomeTornDown = "torn_down"
)

// Metrics holds Prometheus metrics for the Supervisor. A nil *Metrics records
// nothing.
type Metrics struct {
	Completions    *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	Operations     *prometheus.CounterVec
	SettleDuration prometheus.Histogram
}

// NewMetrics creates and registers Supervisor metrics on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_completions_total",
			Help:      "Completions reaching the supervisor, by source and outcome.",
		}, []string{"source", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_notifications_total",
			Help:      "Session change notifications received, by event kind.",
		}, []string{"event"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Sign-up, sign-in and sign-out calls, by operation and result.",
		}, []string{"operation", "result"}),
		SettleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_settle_duration_seconds",
			Help:      "Time from mount to the first settlement.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(m.Completions, m.Notifications, m.Operations, m.SettleDuration)
	return m
}

func (m *Metrics) completion(source Source, outcome string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(string(source), outcome).Inc()
}

func (m *Metrics) notification(kind backend.ChangeKind) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) operation(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, resultOf(err)).Inc()
}

func (m *Metrics) settled(d time.Duration) {
	if m == nil {
		return
	}
	m.SettleDuration.Observe(d.Seconds())
}

func resultOf(err error) string {
	var apiErr *backend.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	case errors.As(err, &apiErr):
		return "rejected"
	default:
		return "error"
	}
}
