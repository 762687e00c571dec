package otel

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestAddSpanUsesInjectedTracer(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer tp.Shutdown(context.Background())

	ctx := InjectTracing(context.Background(), tp.Tracer("test"))
	if GetTraceID(ctx) != "" {
		t.Fatal("expected no trace id before a span starts")
	}
	ctx, span := AddSpan(ctx, "mintUnit")
	defer span.End()

	id := GetTraceID(ctx)
	if len(id) != 32 {
		t.Fatalf("expected 32 hex chars trace id, got %q", id)
	}
}
