package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Options struct {
	ServiceName    string
	TracingEnabled bool
	SampleRatio    float64

	// Registerer receives the otel Prometheus collector. Defaults to the
	// global registry served on /metrics.
	Registerer prometheus.Registerer
	// SpanProcessors receive finished spans, e.g. a tracetest.SpanRecorder.
	SpanProcessors []sdktrace.SpanProcessor
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	validationCounter  otelmetric.Int64Counter
	validationDuration otelmetric.Float64Histogram
}

func New(opts Options) (*Observability, error) {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(opts.Registerer))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(opts.ServiceName)
	validationCounter, err := meter.Int64Counter(
		"validations_processed",
		otelmetric.WithDescription("Number of eligibility checks processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation counter: %w", err)
	}
	validationDuration, err := meter.Float64Histogram(
		"validations_duration",
		otelmetric.WithDescription("Eligibility check duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation histogram: %w", err)
	}

	o := &Observability{
		meterProvider:      meterProvider,
		validationCounter:  validationCounter,
		validationDuration: validationDuration,
		tracer:             noop.NewTracerProvider().Tracer(opts.ServiceName),
	}

	if opts.TracingEnabled {
		tpOpts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		}
		for _, sp := range opts.SpanProcessors {
			tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
		}
		o.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
	}

	return o, nil
}

// StartSpan starts a span on the service tracer. With tracing disabled the
// span is a no-op.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordValidation(ctx context.Context, channel, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	)
	o.validationCounter.Add(ctx, 1, attrs)
	o.validationDuration.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
