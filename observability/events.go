package observability

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"loyaltyledger/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

func ledgerEvents() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of ledger events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// LogEmitter bridges ledger events into structured logs and metrics. It is
// the default event sink wired by the daemon.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter writing through the supplied logger.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements the events.Emitter interface.
func (e *LogEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	ledgerEvents().emitted.WithLabelValues(evt.EventType()).Inc()
	attrs := evt.Attributes()
	args := make([]any, 0, len(attrs)*2+2)
	args = append(args, "event", evt.EventType())
	for key, value := range attrs {
		args = append(args, key, value)
	}
	e.logger.Info("ledger event", args...)
}

var _ events.Emitter = (*LogEmitter)(nil)
