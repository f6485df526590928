package notify

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts notification outcomes per channel. Fields may be nil.
type Metrics struct {
	SentTotal   *prometheus.CounterVec // {channel}
	FailedTotal *prometheus.CounterVec // {channel}
}

func (m *Metrics) sent(channel string) {
	if m != nil && m.SentTotal != nil {
		m.SentTotal.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) failed(channel string) {
	if m != nil && m.FailedTotal != nil {
		m.FailedTotal.WithLabelValues(channel).Inc()
	}
}

// Fanout delivers each event to every target, swallowing individual
// failures. Its own Notify never returns an error: one dead channel must
// not look like a delivery failure to the flow.
type Fanout struct {
	targets []Notifier
	logger  *slog.Logger
	metrics *Metrics
}

// NewFanout creates a fanout over the given targets. metrics may be nil.
func NewFanout(logger *slog.Logger, metrics *Metrics, targets ...Notifier) *Fanout {
	return &Fanout{targets: targets, logger: logger, metrics: metrics}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Notify(ctx context.Context, ev Event) error {
	for _, t := range f.targets {
		if err := t.Notify(ctx, ev); err != nil {
			f.metrics.failed(t.Name())
			f.logger.Warn("operator notification failed",
				"channel", t.Name(),
				"kind", ev.Kind,
				"tenant", ev.Tenant,
				"error", err,
			)
			continue
		}
		f.metrics.sent(t.Name())
	}
	return nil
}
