package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "messages_sent_total",
			Help:      "Messages persisted, by kind",
		},
		[]string{"kind"},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "send_failures_total",
			Help:      "Messages that failed to leave, by error code",
		},
		[]string{"code"},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "active_subscriptions",
			Help:      "Live subscriptions held by gateway sessions",
		},
		[]string{"topic"},
	)

	SubscriptionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "subscription_errors_total",
			Help:      "Live subscriptions that stopped updating",
		},
		[]string{"topic"},
	)

	SnapshotsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "snapshots_suppressed_total",
			Help:      "Snapshots not pushed because they matched the previous push",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "freshkart",
			Subsystem: "messaging",
			Name:      "websocket_connections",
			Help:      "Open gateway sessions",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

func RecordSend(kind string) {
	MessagesSent.WithLabelValues(kind).Inc()
}

func RecordSendFailure(code string) {
	SendFailures.WithLabelValues(code).Inc()
}

// SubscriptionOpened increments the gauge and returns the matching release.
func SubscriptionOpened(topic string) func() {
	g := ActiveSubscriptions.WithLabelValues(topic)
	g.Inc()
	return g.Dec
}
