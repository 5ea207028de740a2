package instrument

import (
	"context"
	"strconv"

	"github.com/vango-dev/tracked/pkg/observable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "tracked"

// OTelConfig configures the OpenTelemetry hooks.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "tracked").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// Filter determines which reactions are traced. Return true to trace.
	// If nil, all reactions are traced.
	Filter func(r *observable.Reaction) bool

	// TraceNotify enables spans for notifying writes. Enabled by default.
	TraceNotify bool
}

// OTelOption configures the OpenTelemetry hooks.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithReactionFilter sets a filter function for traced reactions.
func WithReactionFilter(filter func(r *observable.Reaction) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithNotifySpans enables or disables spans for notifying writes.
func WithNotifySpans(enabled bool) OTelOption {
	return func(c *OTelConfig) {
		c.TraceNotify = enabled
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		TraceNotify: true,
	}
}

// Tracer implements observable.Hooks by emitting spans.
type Tracer struct {
	config OTelConfig
	tracer trace.Tracer
}

// OpenTelemetry creates tracing hooks.
func OpenTelemetry(opts ...OTelOption) *Tracer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		config: config,
		tracer: tp.Tracer(config.TracerName),
	}
}

// Read implements observable.Hooks.
func (t *Tracer) Read(observable.PropertyID) {}

// Wrote implements observable.Hooks.
func (t *Tracer) Wrote(observable.PropertyID) {}

// Notified implements observable.Hooks.
func (t *Tracer) Notified(id observable.PropertyID, subscribers int) func() {
	if !t.config.TraceNotify {
		return func() {}
	}
	_, span := t.tracer.Start(context.Background(), "tracked.notify",
		trace.WithAttributes(
			attribute.String("tracked.property", string(id)),
			attribute.Int("tracked.subscribers", subscribers),
		),
	)
	return func() { span.End() }
}

// TrackStarted implements observable.Hooks.
func (t *Tracer) TrackStarted(r *observable.Reaction) func(observable.TrackStats) {
	if t.config.Filter != nil && !t.config.Filter(r) {
		return func(observable.TrackStats) {}
	}

	attrs := []attribute.KeyValue{
		attribute.String("tracked.reaction.id", strconv.FormatUint(r.ID(), 10)),
	}
	if name := r.Name(); name != "" {
		attrs = append(attrs, attribute.String("tracked.reaction.name", name))
	}
	_, span := t.tracer.Start(context.Background(), "tracked.track", trace.WithAttributes(attrs...))

	return func(s observable.TrackStats) {
		span.SetAttributes(
			attribute.Int("tracked.reads", s.Reads),
			attribute.Int("tracked.edges.added", s.Added),
			attribute.Int("tracked.edges.removed", s.Removed),
		)
		span.End()
	}
}
