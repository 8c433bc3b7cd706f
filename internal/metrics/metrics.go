// Package metrics counts labeling activity on the global OpenTelemetry meter.
// Without a registered SDK every instrument is a no-op.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tropicly/labeler/internal/navigator"
)

// MeterName is the instrumentation scope.
const MeterName = "github.com/tropicly/labeler"

// Recorder turns navigator events into counters.
type Recorder struct {
	events   metric.Int64Counter
	loaded   metric.Int64Counter
	position metric.Int64Gauge
	total    metric.Int64Gauge
}

// NewRecorder creates the instruments on meter. A nil meter uses the global
// provider.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	events, err := meter.Int64Counter("labeler.events",
		metric.WithDescription("Navigator state changes by kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}
	loaded, err := meter.Int64Counter("labeler.samples.loaded",
		metric.WithDescription("Samples read from uploaded files"))
	if err != nil {
		return nil, fmt.Errorf("failed to create loaded counter: %w", err)
	}
	position, err := meter.Int64Gauge("labeler.cursor",
		metric.WithDescription("Index of the displayed sample, -1 before the first"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cursor gauge: %w", err)
	}
	total, err := meter.Int64Gauge("labeler.samples.total",
		metric.WithDescription("Samples in the loaded file"))
	if err != nil {
		return nil, fmt.Errorf("failed to create total gauge: %w", err)
	}

	return &Recorder{
		events:   events,
		loaded:   loaded,
		position: position,
		total:    total,
	}, nil
}

// Observe records e.
func (r *Recorder) Observe(e navigator.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("kind", string(e.Kind)))

	r.events.Add(ctx, 1, attrs)
	switch e.Kind {
	case navigator.EventLoaded:
		r.loaded.Add(ctx, int64(e.Total))
		r.total.Record(ctx, int64(e.Total))
		r.position.Record(ctx, int64(e.Cursor))
	case navigator.EventMoved:
		r.position.Record(ctx, int64(e.Cursor))
	}
}
