// internal/handlers/websocket/websocket.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/middleware"
	xerrors "fitpower-web/internal/pkg/errors"
	"fitpower-web/internal/pkg/response"
	"fitpower-web/internal/pkg/session"
	ws "fitpower-web/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type StatusChecker interface {
	CheckStatus(ctx context.Context, scope *session.Scope) (*auth.Session, error)
}

type WebSocketHandler struct {
	hub      *ws.Hub
	checker  StatusChecker
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler builds the session events endpoint. With no allowed
// origins only same-origin upgrades are accepted.
func NewWebSocketHandler(hub *ws.Hub, checker StatusChecker, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:     hub,
		checker: checker,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// HandleConnection upgrades an authenticated browser session to a websocket
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	scope := middleware.MustGetScope(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	sess, err := h.checker.CheckStatus(ctx, scope)
	cancel()
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			response.Unauthorized(c, "authentication required")
			return
		}
		h.logger.Warn("session check before upgrade failed",
			zap.String("session_id", scope.ID()),
			zap.Error(err),
		)
		response.Unavailable(c, 2*time.Second, "session store unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, scope, sess.PrimaryRole().String())
	if !h.hub.Join(client) {
		h.logger.Warn("websocket hub stopped, dropping connection", zap.String("session_id", scope.ID()))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	h.logger.Info("websocket client connected",
		zap.String("session_id", scope.ID()),
		zap.String("username", sess.Username),
	)

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns websocket connection statistics (admin only)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now().UTC(),
	})
}
