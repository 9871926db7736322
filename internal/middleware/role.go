package middleware

import (
	"log/slog"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// RequireRole allows the request through only when the caller holds one of roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	allowed := make(map[domain.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := GetClaimsFromContext(c)
		if !ok {
			abortWithAppError(c, apperrors.NewInvalidTokenError("Authentication required", nil))
			return
		}
		if !allowed[claims.Role] {
			GetLoggerFromCtx(c.Request.Context()).Warn("Role not permitted", slog.String("role", string(claims.Role)))
			abortWithAppError(c, apperrors.NewForbiddenError("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}
