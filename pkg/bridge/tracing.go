package bridge

import (
	"context"

	"github.com/goclaw/oembridge/pkg/notification"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const bridgeTracerName = "oembridge.bridge"

const (
	spanDispatch   = "oembridge.dispatch"
	spanRegister   = "oembridge.register"
	spanUnregister = "oembridge.unregister"
)

func bridgeTracer() trace.Tracer {
	return otel.Tracer(bridgeTracerName)
}

func startDispatchSpan(ctx context.Context, kind notification.Kind) (context.Context, trace.Span) {
	return bridgeTracer().Start(ctx, spanDispatch,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("notification.kind", string(kind)),
			attribute.String("notification.mode", string(kind.Mode())),
		),
	)
}

func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("dispatch.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
