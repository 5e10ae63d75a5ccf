package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "salesreport",
		Enabled:     true,
	}
}

// TracingWithConfig returns the OpenTelemetry middleware chain: otelgin
// followed by a handler tagging the server span with the request ID and
// the queried dates. It returns nil when tracing is disabled.
func TracingWithConfig(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{
		otelgin.Middleware(cfg.ServiceName),
		spanAttributes,
	}
}

func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if start := c.Query("start"); start != "" {
			span.SetAttributes(attribute.String("report.start_date", start))
		}
		if end := c.Query("end"); end != "" {
			span.SetAttributes(attribute.String("report.end_date", end))
		}
	}
	c.Next()
}
