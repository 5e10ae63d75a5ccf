package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of report spans
const TracerName = "salesreport"

// Span attribute keys shared by the pipeline and the Magento client.
const (
	AttrRunID       = attribute.Key("report.run_id")
	AttrWindowStart = attribute.Key("report.window.start")
	AttrWindowEnd   = attribute.Key("report.window.end")
	AttrOrderCount  = attribute.Key("report.orders.count")
	AttrRowCount    = attribute.Key("report.rows.count")
	AttrEndpoint    = attribute.Key("magento.endpoint")
	AttrStatusCode  = attribute.Key("http.response.status_code")
)

// StartSpan starts an internal span on the global tracer provider. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "report.fetch_orders", telemetry.AttrWindowStart.String(start))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, name, trace.SpanKindInternal, attrs)
}

// StartClientSpan starts a span for an outbound call to the platform
func StartClientSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return start(ctx, name, trace.SpanKindClient, attrs)
}

func start(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(kind)}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, opts...)
}

// RecordError records err on the span and marks it failed. Report outcomes
// that only mean "nothing to do" are not failures and should not reach here.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
