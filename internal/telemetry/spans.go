package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys for transfers.
const (
	AttrTransferID  = "transfer.id"
	AttrEntityID    = "transfer.entity_id"
	AttrDirection   = "transfer.direction"
	AttrLocator     = "transfer.locator"
	AttrDestination = "transfer.destination"
	AttrHandler     = "transfer.handler"
	AttrStatus      = "transfer.status"
	AttrAsync       = "transfer.async"
)

func TransferID(id string) attribute.KeyValue { return attribute.String(AttrTransferID, id) }
func EntityID(id string) attribute.KeyValue { return attribute.String(AttrEntityID, id) }
func Direction(d string) attribute.KeyValue { return attribute.String(AttrDirection, d) }
func Locator(l string) attribute.KeyValue { return attribute.String(AttrLocator, l) }
func Destination(p string) attribute.KeyValue { return attribute.String(AttrDestination, p) }
func HandlerName(name string) attribute.KeyValue { return attribute.String(AttrHandler, name) }
func Status(s string) attribute.KeyValue { return attribute.String(AttrStatus, s) }
func Async(on bool) attribute.KeyValue { return attribute.Bool(AttrAsync, on) }

// StartTransferSpan starts an internal span named "transfer.<operation>".
func StartTransferSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "transfer."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartHandlerSpan starts a client span around a handler call.
func StartHandlerSpan(ctx context.Context, handler, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, HandlerName(handler))
	return StartSpan(ctx, "handler."+handler+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}
