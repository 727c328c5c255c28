package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/openhours/doorkeeper/internal/transport/http/handler"
	"github.com/openhours/doorkeeper/internal/transport/http/middleware"
)

func NewRouter(
	logger *slog.Logger,
	healthHandler *handler.HealthHandler,
	statusHandler *handler.StatusHandler,
	actionHandler *handler.ActionHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/status", statusHandler.Get)
	r.POST("/actions/unlock", actionHandler.Unlock)
	r.POST("/actions/lock", actionHandler.Lock)

	return r
}
