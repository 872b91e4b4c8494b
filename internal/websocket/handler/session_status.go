// internal/websocket/handler/session_status.go
package handlers

import (
	"context"
	"errors"
	"fmt"

	"fitpower-web/internal/domain/auth"
	wstypes "fitpower-web/internal/domain/websocket"
	xerrors "fitpower-web/internal/pkg/errors"
	"fitpower-web/internal/pkg/jwt"
	"fitpower-web/internal/pkg/session"
	ws "fitpower-web/internal/websocket"
)

type StatusChecker interface {
	CheckStatus(ctx context.Context, scope *session.Scope) (*auth.Session, error)
}

// SessionStatusHandler lets an open tab ask whether its session is still
// valid without a page load.
type SessionStatusHandler struct {
	checker  StatusChecker
	resolver *jwt.Resolver
}

func NewSessionStatusHandler(checker StatusChecker, resolver *jwt.Resolver) *SessionStatusHandler {
	return &SessionStatusHandler{
		checker:  checker,
		resolver: resolver,
	}
}

// SupportedEvents returns events this handler supports
func (h *SessionStatusHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeSessionStatus}
}

// HandleMessage answers a session:status request
func (h *SessionStatusHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeSessionStatus {
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	sess, err := h.checker.CheckStatus(ctx, client.Scope())
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionStatus, wstypes.SessionStatusData{
				Authenticated: false,
				RedirectTo:    auth.PathHome,
			}))
			return nil
		}
		return err
	}

	status := wstypes.SessionStatusData{
		Authenticated: true,
		Role:          sess.PrimaryRole().String(),
		RedirectTo:    auth.RedirectPath(sess.Roles),
	}
	if h.resolver != nil {
		if exp := h.resolver.ExpiresAt(sess.Token); !exp.IsZero() {
			status.ExpiresAt = &exp
		}
	}
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionStatus, status))
	return nil
}
