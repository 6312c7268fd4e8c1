package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestSpanHierarchy(t *testing.T) {
	recorder := withRecorder(t)

	ctx, turn := StartTurnSpan(context.Background())
	sctx, stage := StartStageSpan(ctx, "tools")
	_, toolSpan := StartToolSpan(sctx, "portfolio_analysis")
	toolSpan.End()
	stage.End()
	AnnotateTurn(ctx, "performance", "pass")
	turn.End()

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(spans))
	}
	// 结束顺序 tool → stage → turn
	if spans[0].Name() != "tool.invoke" {
		t.Fatalf("spans[0] = %s, want tool.invoke", spans[0].Name())
	}
	if spans[1].Name() != "stage.execute" {
		t.Fatalf("spans[1] = %s, want stage.execute", spans[1].Name())
	}
	if spans[2].Name() != "turn.execute" {
		t.Fatalf("spans[2] = %s, want turn.execute", spans[2].Name())
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Fatal("tool span should be a child of the stage span")
	}
	if spans[1].Parent().SpanID() != spans[2].SpanContext().SpanID() {
		t.Fatal("stage span should be a child of the turn span")
	}
}

func TestSpanAttributes(t *testing.T) {
	recorder := withRecorder(t)

	ctx, turn := StartTurnSpan(context.Background())
	_, stage := StartStageSpan(ctx, "classify")
	stage.End()
	AnnotateTurn(ctx, "buy", "flag")
	turn.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if got := attrValue(spans[0].Attributes(), "stage.name"); got != "classify" {
		t.Fatalf("stage.name = %q, want classify", got)
	}
	if got := attrValue(spans[1].Attributes(), "query.type"); got != "buy" {
		t.Fatalf("query.type = %q, want buy", got)
	}
	if got := attrValue(spans[1].Attributes(), "verification.outcome"); got != "flag" {
		t.Fatalf("verification.outcome = %q, want flag", got)
	}
}
