package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "crowdin-connector"

// Metrics holds the connector's metric instruments.
type Metrics struct {
	Deliveries       metric.Int64Counter
	SubEvents        metric.Int64Counter // attribute "outcome": skip reason or "processed"
	EventsProduced   metric.Int64Counter
	Broadcasts       metric.Int64Counter // attributes "kind", "result"
	DispatchDuration metric.Float64Histogram
	HookLifecycle    metric.Int64Counter // attributes "operation", "result"
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Deliveries, err = meter.Int64Counter("crowdin.webhook.deliveries",
		metric.WithDescription("Number of webhook deliveries accepted"))
	if err != nil {
		return nil, err
	}

	m.SubEvents, err = meter.Int64Counter("crowdin.webhook.subevents",
		metric.WithDescription("Number of webhook sub-events by outcome"))
	if err != nil {
		return nil, err
	}

	m.EventsProduced, err = meter.Int64Counter("crowdin.events.produced",
		metric.WithDescription("Number of gamification events produced by trigger plugins"))
	if err != nil {
		return nil, err
	}

	m.Broadcasts, err = meter.Int64Counter("crowdin.actions.broadcast",
		metric.WithDescription("Number of gamification actions broadcast"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram("crowdin.webhook.dispatch_duration_seconds",
		metric.WithDescription("Time spent dispatching one webhook delivery"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.HookLifecycle, err = meter.Int64Counter("crowdin.hooks.lifecycle",
		metric.WithDescription("Number of webhook lifecycle operations"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
