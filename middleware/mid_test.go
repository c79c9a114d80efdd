package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/auth"
)

func newRouter(t *testing.T) (*gin.Engine, *auth.Keys) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	keys, err := auth.NewKeys("test-secret")
	require.NoError(t, err)
	return gin.New(), keys
}

func TestAuthentication(t *testing.T) {
	r, keys := newRouter(t)
	m, err := NewMid(keys)
	require.NoError(t, err)

	r.GET("/me", m.Authentication(), func(c *gin.Context) {
		claims := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject, "role": claims.Role})
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid bearer token", func(t *testing.T) {
		token, err := keys.GenerateToken("user-1", auth.RoleUser)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-1")
	})

	t.Run("valid cookie token", func(t *testing.T) {
		token, err := keys.GenerateToken("user-2", auth.RoleUser)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-2")
	})
}

func TestAuthorize(t *testing.T) {
	r, keys := newRouter(t)
	m, err := NewMid(keys)
	require.NoError(t, err)

	r.GET("/admin", m.Authentication(), m.Authorize(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(role string) int {
		token, err := keys.GenerateToken("user-1", role)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, do(auth.RoleUser))
	assert.Equal(t, http.StatusOK, do(auth.RoleAdmin))
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(nil, 1, 0), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
