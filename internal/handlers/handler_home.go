package handlers

import (
	"log/slog"
	"net/http"

	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	"github.com/SscSPs/auth_service/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HealthResponse reports whether the service can reach its credential store.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// getHealth godoc
// @Summary Show the status of server.
// @Description Reports whether the server and its credential store are reachable.
// @Tags root
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func getHealth(store portsrepo.StoreHealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				middleware.GetLoggerFromCtx(c.Request.Context()).Error("Credential store unreachable", slog.String("error", err.Error()))
				c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}
