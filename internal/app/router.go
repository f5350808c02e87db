// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	authHandler "academy-service/internal/handlers/auth"
	wsHandler "academy-service/internal/handlers/websocket"
	"academy-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	WSHandler      *wsHandler.WebSocketHandler
	TabMiddleware  *middleware.TabMiddleware
	AuthMiddleware *middleware.AuthMiddleware
	Health         map[string]Pinger
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", healthHandler(logger, h.Health))

	// Everything below runs in the context of a browser tab
	tabs := h.TabMiddleware.Context()

	// ==================== WebSocket ====================
	r.GET("/ws/tab", tabs, h.WSHandler.HandleTab)

	// ==================== Auth Routes ====================
	authRoutes := api.Group("/auth", tabs)
	{
		authRoutes.POST("/login", h.AuthHandler.Login)
		authRoutes.POST("/logout", h.AuthHandler.Logout)
		authRoutes.GET("/me", h.AuthHandler.Me)
		authRoutes.POST("/tab/close", h.AuthHandler.CloseTab)
	}

	// ==================== Dashboards ====================
	student := api.Group("/student", tabs, h.AuthMiddleware.StudentOnly())
	{
		student.GET("/profile", h.AuthHandler.Profile)
	}

	supervisor := api.Group("/supervisor", tabs, h.AuthMiddleware.SupervisorOnly())
	{
		supervisor.GET("/profile", h.AuthHandler.Profile)
	}

	admin := api.Group("/admin", tabs, h.AuthMiddleware.AdminOnly())
	{
		admin.GET("/profile", h.AuthHandler.Profile)
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}

func healthHandler(logger *zap.Logger, deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}
