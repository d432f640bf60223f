package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_RecordValidation(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs, err := New(Options{ServiceName: "opt-eligibility-test", Registerer: registry})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	obs.RecordValidation(context.Background(), "http", "eligible", 3*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "validations_processed_total")
	assert.Contains(t, names, "validations_duration_milliseconds")
	for _, name := range names {
		assert.NotContains(t, name, ".", "metric names must be underscore-only")
	}
}

func TestObservability_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs, err := New(Options{
		ServiceName:    "opt-eligibility-test",
		TracingEnabled: true,
		SampleRatio:    1,
		Registerer:     prometheus.NewRegistry(),
		SpanProcessors: []sdktrace.SpanProcessor{recorder},
	})
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	_, span := obs.StartSpan(context.Background(), "eligibility.validate", attribute.String("channel", "worker"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "eligibility.validate", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("channel", "worker"))
}

func TestObservability_TracingDisabled(t *testing.T) {
	obs, err := New(Options{ServiceName: "opt-eligibility-test", Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)

	_, span := obs.StartSpan(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, obs.Shutdown(context.Background()))
}
