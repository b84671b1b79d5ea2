package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for application spans
const TracerName = "erp-backend"

// Span attribute keys used by the document service
const (
	SpanAttrTenantID       = "tenant_id"
	SpanAttrDocumentID     = "document_id"
	SpanAttrDocumentKind   = "document_kind"
	SpanAttrDocumentNumber = "document_number"
	SpanAttrOperation      = "posting.operation"
	SpanAttrAllowed        = "posting.allowed"
	SpanAttrStatusCode     = "posting.status_code"
	SpanAttrBulkTotal      = "posting.bulk.total"
	SpanAttrBulkBlocked    = "posting.bulk.blocked"
)

// StartSpan starts an internal span on the global tracer provider.
// attrs are alternating string keys and values.
//
//	ctx, span := telemetry.StartSpan(ctx, "document.post", telemetry.SpanAttrDocumentID, id.String())
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...any) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toAttributes(attrs)...),
	)
}

// SetAttributes adds alternating key/value attributes to span
func SetAttributes(span trace.Span, attrs ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(toAttributes(attrs)...)
}

// RecordError marks span as failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the current trace ID or "" when ctx carries no valid span
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.TraceID().IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

func toAttributes(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, toAttribute(key, kv[i+1]))
	}
	return out
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
