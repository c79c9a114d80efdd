// Package middleware holds the gin middleware chain: request logging with
// trace ids, token authentication, role authorization, and the auth-endpoint
// rate limiter.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/auth"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/ctxmanage"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/logkey"
)

type Mid struct {
	keys *auth.Keys
}

func NewMid(keys *auth.Keys) (*Mid, error) {
	if keys == nil {
		return nil, fmt.Errorf("auth keys are nil")
	}
	return &Mid{keys: keys}, nil
}

// bearerToken pulls the session token from the Authorization header, falling
// back to the session cookie for browser clients.
func bearerToken(c *gin.Context) string {
	header := c.Request.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return cookie
	}
	return ""
}

// Authentication validates the session token and stashes its claims in the
// request context under auth.ClaimsKey.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		token := bearerToken(c)
		if token == "" {
			slog.Error("missing session token", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := m.keys.ValidateToken(token)
		if err != nil {
			slog.Error("invalid session token", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize allows the request through only when the authenticated role is
// one of the given roles. It must sit after Authentication in the chain.
func (m *Mid) Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		if !ok {
			slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		slog.Error("insufficient role", slog.String(logkey.TraceID, traceId),
			slog.String("role", claims.Role))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}
