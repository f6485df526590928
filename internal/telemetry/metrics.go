package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "sellowl",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// UpdatesReceivedTotal counts inbound webhook updates per tenant.
var UpdatesReceivedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sellowl",
		Subsystem: "bot",
		Name:      "updates_received_total",
		Help:      "Inbound webhook updates by tenant.",
	},
	[]string{"tenant"},
)

// CallbackActionsTotal counts routed callback actions per tenant.
var CallbackActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sellowl",
		Subsystem: "bot",
		Name:      "callback_actions_total",
		Help:      "Routed callback actions by tenant and action.",
	},
	[]string{"tenant", "action"},
)

// PaidClaimsDebouncedTotal counts "I've paid" taps suppressed by the
// debounce window.
var PaidClaimsDebouncedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sellowl",
		Subsystem: "bot",
		Name:      "paid_claims_debounced_total",
		Help:      "Payment claims suppressed by the debounce window, by tenant.",
	},
	[]string{"tenant"},
)

// NotificationsSentTotal counts delivered operator notifications.
var NotificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sellowl",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Operator notifications delivered, by channel.",
	},
	[]string{"channel"},
)

// NotificationsFailedTotal counts failed operator notifications. Failures
// are logged and dropped, never retried.
var NotificationsFailedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sellowl",
		Subsystem: "notify",
		Name:      "failed_total",
		Help:      "Operator notifications that failed to deliver, by channel.",
	},
	[]string{"channel"},
)

// NewMetricsRegistry creates a Prometheus registry with default and custom
// collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		UpdatesReceivedTotal,
		CallbackActionsTotal,
		PaidClaimsDebouncedTotal,
		NotificationsSentTotal,
		NotificationsFailedTotal,
	)
	return reg
}
