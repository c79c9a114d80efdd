package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Rifate-nur-shawn/Ecom-server/pkg/ctxmanage"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

// RateLimit counts requests per client IP and path in fixed redis windows and
// rejects the overflow with 429. A nil client disables the limiter, so the
// server runs without redis in development.
//
// The limiter fails open: a redis error lets the request through, because a
// broken cache must not take login down with it.
func RateLimit(client *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), c.FullPath())

		ctx := c.Request.Context()
		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			slog.Error("rate limiter unavailable", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()))
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				slog.Error("setting rate limit window", slog.String(logkey.TraceID, traceId),
					slog.String(logkey.ERROR, err.Error()))
			}
		}
		if count > int64(limit) {
			slog.Error("rate limit exceeded", slog.String(logkey.TraceID, traceId),
				slog.String("key", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			return
		}
		c.Next()
	}
}
