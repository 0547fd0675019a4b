package plugin

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/born-ml/synth/internal/plugin"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func pluginAttrs(name string, category Category) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("plugin.name", name),
		attribute.String("plugin.category", string(category)),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
