package middleware

import (
	"log/slog"
	"strings"

	"github.com/SscSPs/auth_service/internal/apperrors"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates a Gin middleware handler that requires a valid access token.
// The verified payload is stored in both the Gin and the request context.
func AuthMiddleware(tokenSvc portssvc.TokenSvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			abortWithAppError(c, apperrors.NewInvalidTokenError("Authorization header required", nil))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logger.Warn("Authorization header format invalid")
			abortWithAppError(c, apperrors.NewInvalidTokenError("Authorization header format must be Bearer {token}", nil))
			return
		}

		claims, err := tokenSvc.VerifyAccessToken(parts[1])
		if err != nil {
			logger.Warn("Access token rejected", slog.String("error", err.Error()))
			abortWithAppError(c, err)
			return
		}

		enrichedLogger := logger.With(slog.String("user_id", claims.UserID))
		ctx := WithLogger(WithClaims(c.Request.Context(), claims), enrichedLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(claimsCtxKey), claims)

		c.Next()
	}
}

// abortWithAppError writes the {"code","error"} body for err and stops the chain.
func abortWithAppError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.Code, appErr)
}
