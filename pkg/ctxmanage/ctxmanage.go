// Package ctxmanage carries request-scoped values, currently just the trace
// id assigned by the logging middleware.
package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type key string

const TraceIDKey key = "trace_id"

// WithTraceID returns a context carrying the given trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID extracts the trace id from a context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// GetTraceIdOfRequest extracts the trace id set on the incoming request.
func GetTraceIdOfRequest(c *gin.Context) string {
	return GetTraceID(c.Request.Context())
}
