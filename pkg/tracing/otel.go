// Copyright 2026 fanjia1024
// OpenTelemetry span helpers for the conversation pipeline

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "advisor-platform"

// StartTurnSpan 开始一轮对话 span。查询类型在分类后才可知，
// 由 AnnotateTurn 补写。
func StartTurnSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "turn.execute")
}

// StartStageSpan 开始单个编排阶段 span
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "stage.execute",
		trace.WithAttributes(
			attribute.String("stage.name", stage),
		),
	)
}

// StartToolSpan 开始 tool invocation span
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
		),
	)
}

// AnnotateTurn 在当前 ctx 的活跃 span 上补写本轮的分类与评估结论
func AnnotateTurn(ctx context.Context, queryType, outcome string) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("query.type", queryType),
		attribute.String("verification.outcome", outcome),
	)
}
