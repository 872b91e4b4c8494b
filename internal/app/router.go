// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	"fitpower-web/internal/domain/auth"
	authHandler "fitpower-web/internal/handlers/auth"
	dashboardHandler "fitpower-web/internal/handlers/dashboard"
	proxyHandler "fitpower-web/internal/handlers/proxy"
	wsHandler "fitpower-web/internal/handlers/websocket"
	"fitpower-web/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler      *authHandler.AuthHandler
	DashboardHandler *dashboardHandler.DashboardHandler
	ProxyHandler     *proxyHandler.ProxyHandler
	WSHandler        *wsHandler.WebSocketHandler
	AuthMiddleware   *middleware.AuthMiddleware

	// Health maps a dependency name to its ping.
	Health  map[string]func(context.Context) error
	Metrics prometheus.Gatherer
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	// ==================== Health Check ====================
	r.GET("/api/health", healthHandler(logger, h.Health))

	// ==================== Metrics ====================
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))
	}

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Session Routes ====================
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", h.AuthHandler.Login)
		authRoutes.POST("/logout", h.AuthHandler.Logout)
		authRoutes.GET("/me", h.AuthHandler.GetMe)
		authRoutes.GET("/status", h.AuthHandler.Status)
	}

	// ==================== Guarded Pages ====================
	guard := h.AuthMiddleware.Guard
	r.GET(auth.PathAdminDashboard, guard(auth.RoleAdmin), h.DashboardHandler.Show(auth.RoleAdmin))
	r.GET(auth.PathTrainerDashboard, guard(auth.RoleTrainer), h.DashboardHandler.Show(auth.RoleTrainer))
	r.GET(auth.PathNutritionistDashboard, guard(auth.RoleNutritionist), h.DashboardHandler.Show(auth.RoleNutritionist))
	r.GET(auth.PathClientDashboard, guard(auth.RoleClient), h.DashboardHandler.Show(auth.RoleClient))

	// ==================== Admin API ====================
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware.RequireSession(auth.RoleAdmin))
	{
		admin.GET("/logins", h.DashboardHandler.RecentLogins)
		admin.GET("/ws-stats", h.WSHandler.GetStats)
	}

	// ==================== Backend Proxy ====================
	r.Any("/api/v1/*path", h.ProxyHandler.Forward)
}

func healthHandler(logger *zap.Logger, checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				deps[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "dependencies": deps})
	}
}
