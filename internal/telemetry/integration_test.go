package telemetry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestInjectHeaders verifies that outgoing requests carry the active span's trace context
func TestInjectHeaders(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(context.Background())
	}()

	ctx, span := Tracer().Start(context.Background(), "backend.list_services")
	h := http.Header{}
	InjectHeaders(ctx, h)
	span.End()

	traceParent := h.Get("traceparent")
	require.NotEmpty(t, traceParent)
	assert.Contains(t, traceParent, span.SpanContext().TraceID().String())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "backend.list_services", spans[0].Name)
}

func TestInjectHeaders_NoSpan(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prevProp)

	h := http.Header{}
	InjectHeaders(context.Background(), h)
	assert.Empty(t, h.Get("traceparent"))
}
