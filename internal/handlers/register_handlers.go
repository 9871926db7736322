package handlers

import (
	"github.com/SscSPs/auth_service/cmd/docs"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// health and analytics may be nil.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	health portsrepo.StoreHealthChecker,
	analytics *utils.PosthogClientWrapper,
) error {
	registerValidators()

	r.GET("/health", getHealth(health))

	limit, err := authRateLimit(cfg)
	if err != nil {
		return err
	}
	authRequired := middleware.AuthMiddleware(services.Token)

	// Public authentication routes
	auth := r.Group("/auth")
	registerAuthRoutes(auth, newAuthHandler(services.Auth, analytics), limit, authRequired)
	registerOAuthRoutes(auth, newOAuthHandler(cfg, services, analytics))

	// Setup API v1 routes with Auth Middleware
	setupAPIV1Routes(r, services, authRequired, analytics)

	setupSwaggerRoutes(r, cfg)
	return nil
}

// authRateLimit builds the per-IP limiter for credential endpoints. An empty
// AUTH_RATE_LIMIT disables limiting.
func authRateLimit(cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.AuthRateLimit == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	lim, err := middleware.NewIPRateLimiter(cfg.AuthRateLimit)
	if err != nil {
		return nil, err
	}
	return middleware.RateLimit(lim), nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	authRequired gin.HandlerFunc,
	analytics *utils.PosthogClientWrapper,
) {
	v1 := r.Group("/api/v1", authRequired, middleware.PosthogMiddleware(analytics))
	registerUserRoutes(v1, newUserHandler(services.User, services.Auth, analytics))
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
