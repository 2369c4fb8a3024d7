package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver turns events into Prometheus counters, keyed by event
// type and source. It is deliberately coarse: the engine calls OnEvent far
// more often than a dashboard needs distinct series, so Data fields are not
// exploded into labels.
type MetricsObserver struct {
	events *prometheus.CounterVec
}

// NewMetricsObserver creates a MetricsObserver and registers its collector
// with reg. Passing prometheus.DefaultRegisterer matches the common case of
// a process-wide /metrics endpoint.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evtree_events_total",
		Help: "Total observability events emitted by the event tree engine, by type and source.",
	}, []string{"type", "source"})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			events = existing
		} else {
			return nil, err
		}
	}

	return &MetricsObserver{events: events}, nil
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	m.events.WithLabelValues(string(event.Type), event.Source).Inc()
}
