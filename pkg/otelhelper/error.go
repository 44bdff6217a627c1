package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed with err.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetFailure marks span as failed with a message carried by a stage result.
func SetFailure(span trace.Span, message string, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, message)
	span.AddEvent("stage_failed", trace.WithAttributes(
		append(attrs, attribute.String("error.message", message))...,
	))
}
