package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartEnd(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, parent := Start(context.Background(), "parent", attribute.String("k", "v"))
	_, child := Start(ctx, "child")
	End(child, errors.New("boom"))
	End(parent, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	c, p := spans[0], spans[1]
	if c.Name() != "child" || p.Name() != "parent" {
		t.Fatalf("unexpected span order: %s, %s", c.Name(), p.Name())
	}
	if c.Parent().SpanID() != p.SpanContext().SpanID() {
		t.Error("child should be parented to the span in ctx")
	}
	if c.Status().Code != codes.Error || c.Status().Description != "boom" {
		t.Errorf("unexpected child status: %+v", c.Status())
	}
	if p.Status().Code != codes.Ok {
		t.Errorf("unexpected parent status: %+v", p.Status())
	}
	if got := p.InstrumentationScope().Name; got != InstrumentationName {
		t.Errorf("unexpected scope %q", got)
	}
}
