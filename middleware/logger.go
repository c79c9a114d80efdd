package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rifate-nur-shawn/Ecom-server/pkg/ctxmanage"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

// Logger assigns every request a trace id, puts it in the request context,
// and logs the request on the way in and out.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := uuid.NewString()
		ctx := ctxmanage.WithTraceID(c.Request.Context(), traceId)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		slog.Info("request started",
			slog.String(logkey.TraceID, traceId),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Next()

		slog.Info("request completed",
			slog.String(logkey.TraceID, traceId),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
