package observability

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"tokenvesting/core/events"
)

type eventMetrics struct {
	events  *prometheus.CounterVec
	amounts *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger events. It
// implements events.Emitter so it can be attached to the node's bus.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "events_total",
				Help:      "Count of committed ledger events segmented by type.",
			}, []string{"type"}),
			amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "amount_total",
				Help:      "Sum of token amounts carried by ledger events, segmented by type. Float precision.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.events, eventRegistry.amounts)
	})
	return eventRegistry
}

// Emit implements events.Emitter.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	payload := events.Canonical(evt)
	kind := strings.TrimSpace(payload.Type)
	if kind == "" {
		kind = "unknown"
	}
	m.events.WithLabelValues(kind).Inc()
	if raw, ok := payload.Attributes["amount"]; ok {
		if amount, err := strconv.ParseFloat(raw, 64); err == nil && amount > 0 {
			m.amounts.WithLabelValues(kind).Add(amount)
		}
	}
}
