// Package telemetry reports store activity through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	store "github.com/goliatone/go-store"
)

const instrumentationName = "github.com/goliatone/go-store"

// Observer implements store.Observer using OpenTelemetry
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter

	setCounter      metric.Int64Counter
	setDuration     metric.Float64Histogram
	notifyCounter   metric.Int64Counter
	persistCounter  metric.Int64Counter
	persistDuration metric.Float64Histogram
	persistErrors   metric.Int64Counter
	listenerFaults  metric.Int64Counter
}

// Option configures the Observer
type Option func(*Observer)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observer) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observer) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates an Observer, using the global providers unless overridden.
func New(opts ...Option) (*Observer, error) {
	obs := &Observer{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(obs)
		}
	}

	var err error
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&obs.setCounter, "store.set.count", "Number of set and replace calls", "{call}"},
		{&obs.notifyCounter, "store.listener.notifications", "Number of listener invocations", "{call}"},
		{&obs.persistCounter, "store.persist.count", "Number of medium operations", "{operation}"},
		{&obs.persistErrors, "store.persist.errors", "Number of failed medium operations", "{error}"},
		{&obs.listenerFaults, "store.listener.faults", "Number of listeners that panicked", "{fault}"},
	}
	for _, c := range counters {
		*c.target, err = obs.meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("telemetry: %s: %w", c.name, err)
		}
	}

	obs.setDuration, err = obs.meter.Float64Histogram(
		"store.set.duration",
		metric.WithDescription("Set duration including persistence and notification"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: store.set.duration: %w", err)
	}

	obs.persistDuration, err = obs.meter.Float64Histogram(
		"store.persist.duration",
		metric.WithDescription("Medium operation duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: store.persist.duration: %w", err)
	}

	return obs, nil
}

type attrsKey struct{}

// withAttrs carries the attributes of a Start hook to its Complete hook.
func withAttrs(ctx context.Context, attrs ...attribute.KeyValue) context.Context {
	return context.WithValue(ctx, attrsKey{}, attrs)
}

func attrsFrom(ctx context.Context) []attribute.KeyValue {
	attrs, _ := ctx.Value(attrsKey{}).([]attribute.KeyValue)
	return attrs
}

// OnSetStart starts a span for a set call
func (o *Observer) OnSetStart(ctx context.Context, key string, mode store.Mode) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String("store.key", key),
		attribute.String("store.mode", string(mode)),
	}
	ctx, _ = o.tracer.Start(ctx, "store.set: "+key, trace.WithAttributes(attrs...))
	return withAttrs(ctx, attrs...)
}

// OnSetComplete records the outcome of a set call and ends its span
func (o *Observer) OnSetComplete(ctx context.Context, changed bool, listeners int, duration time.Duration) {
	span := trace.SpanFromContext(ctx)
	attrs := append(attrsFrom(ctx), attribute.Bool("store.changed", changed))

	o.setCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	o.setDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	if listeners > 0 {
		o.notifyCounter.Add(ctx, int64(listeners), metric.WithAttributes(attrsFrom(ctx)...))
	}

	span.SetAttributes(
		attribute.Bool("store.changed", changed),
		attribute.Int("store.listeners", listeners),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// OnPersistStart starts a span for a medium operation
func (o *Observer) OnPersistStart(ctx context.Context, key string, op string) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String("store.key", key),
		attribute.String("store.op", op),
	}
	ctx, _ = o.tracer.Start(ctx, "store.persist: "+op, trace.WithAttributes(attrs...))
	o.persistCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	return withAttrs(ctx, attrs...)
}

// OnPersistComplete records the result of a medium operation and ends its span
func (o *Observer) OnPersistComplete(ctx context.Context, duration time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	attrs := attrsFrom(ctx)

	o.persistDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		o.persistErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// OnListenerFault counts a recovered listener panic and records it on the set span
func (o *Observer) OnListenerFault(ctx context.Context, key string, recovered any) {
	o.listenerFaults.Add(ctx, 1, metric.WithAttributes(attribute.String("store.key", key)))
	span := trace.SpanFromContext(ctx)
	span.AddEvent("listener.panic", trace.WithAttributes(
		attribute.String("store.key", key),
		attribute.String("panic", fmt.Sprint(recovered)),
	))
}

var _ store.Observer = (*Observer)(nil)
