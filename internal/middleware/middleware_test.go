package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/SscSPs/auth_service/internal/core/services"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/repositories/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, func(role domain.UserRole) string) {
	t.Helper()
	cfg := &config.Config{
		JWTIssuer:                "middleware-test",
		JWTAccessSecret:          "middleware-access-secret",
		JWTAccessExpiryDuration:  time.Minute,
		JWTRefreshSecret:         "middleware-refresh-secret",
		JWTRefreshExpiryDuration: time.Hour,
	}
	tokens := services.NewTokenService(cfg, memory.NewUserRepository())

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))
	authed := r.Group("/", middleware.AuthMiddleware(tokens))
	authed.GET("/me", func(c *gin.Context) {
		userID, _ := middleware.GetUserIDFromContext(c)
		claims, ok := middleware.ClaimsFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"userID": userID, "role": claims.Role})
	})
	authed.GET("/admin", middleware.RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	issue := func(role domain.UserRole) string {
		token, _, err := tokens.IssueAccessToken(context.Background(), &domain.User{
			UserID: "user-1", Email: "ada@example.com", Role: role, Status: domain.StatusActive,
		})
		require.NoError(t, err)
		return token
	}
	return r, issue
}

func serve(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	r, issue := newRouter(t)

	rec := serve(r, "/me", "Bearer "+issue(domain.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userID":"user-1","role":"user"}`, rec.Body.String())

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + issue(domain.RoleUser),
		"extra parts":  "Bearer a b",
		"not a jwt":    "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(r, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"INVALID_TOKEN"`)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r, issue := newRouter(t)

	rec := serve(r, "/admin", "Bearer "+issue(domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	rec = serve(r, "/admin", "Bearer "+issue(domain.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit(t *testing.T) {
	_, err := middleware.NewIPRateLimiter("ten per minute")
	require.Error(t, err)

	lim, err := middleware.NewIPRateLimiter("1-M")
	require.NoError(t, err)
	r := gin.New()
	r.GET("/limited", middleware.RateLimit(lim), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, "/limited", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = serve(r, "/limited", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
}
