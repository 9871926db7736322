package middleware

import (
	"context"

	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// contextKey is used for values stored in the request context.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey = contextKey("logger")
	claimsCtxKey = contextKey("claims")
)

// WithClaims returns a copy of ctx carrying the verified token payload.
func WithClaims(ctx context.Context, claims *domain.TokenPayload) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext returns the verified token payload stored by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*domain.TokenPayload, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(*domain.TokenPayload)
	return claims, ok && claims != nil
}

// GetClaimsFromContext retrieves the authenticated caller's token payload from the Gin context.
func GetClaimsFromContext(c *gin.Context) (*domain.TokenPayload, bool) {
	if v, exists := c.Get(string(claimsCtxKey)); exists {
		if claims, ok := v.(*domain.TokenPayload); ok && claims != nil {
			return claims, true
		}
	}
	return ClaimsFromContext(c.Request.Context())
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	claims, ok := GetClaimsFromContext(c)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
