// internal/handlers/dashboard/dashboard_handler.go
package dashboard

import (
	"context"
	"net/http"
	"strconv"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/middleware"
	"fitpower-web/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginHistory lists audited login attempts.
type LoginHistory interface {
	ListRecent(ctx context.Context, limit int) ([]*auth.LoginEvent, error)
}

// Page is the view model every dashboard receives.
type Page struct {
	Name  string        `json:"name"`
	Role  auth.Role     `json:"role"`
	User  *auth.Session `json:"user"`
	Links []Link        `json:"links"`
}

type Link struct {
	Role auth.Role `json:"role"`
	Path string    `json:"path"`
}

type DashboardHandler struct {
	history LoginHistory
	logger  *zap.Logger
}

// NewDashboardHandler builds the role dashboards. history may be nil when
// no audit database is configured.
func NewDashboardHandler(history LoginHistory, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		history: history,
		logger:  logger,
	}
}

// Show renders the dashboard owned by role for the guarded session
func (h *DashboardHandler) Show(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.MustGetSession(c)
		response.Success(c, http.StatusOK, "dashboard", Page{
			Name:  role.LandingPath(),
			Role:  role,
			User:  sess.Public(),
			Links: links(sess.Roles),
		})
	}
}

// RecentLogins lists the latest login attempts (admin only)
func (h *DashboardHandler) RecentLogins(c *gin.Context) {
	if h.history == nil {
		response.Success(c, http.StatusOK, "login audit disabled", []*auth.LoginEvent{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		response.ValidationError(c, "limit must be a positive integer", err)
		return
	}

	events, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list login events", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list login events", err)
		return
	}
	response.Success(c, http.StatusOK, "recent logins", events)
}

// links lists the dashboards a multi-role user may switch between, in
// landing precedence order.
func links(roles []auth.Role) []Link {
	out := make([]Link, 0, len(roles))
	for _, r := range auth.SortByPrecedence(roles) {
		out = append(out, Link{Role: r, Path: r.LandingPath()})
	}
	return out
}
