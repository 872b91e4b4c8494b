// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"fitpower-web/internal/domain/auth"
	wstypes "fitpower-web/internal/domain/websocket"
	"fitpower-web/internal/metrics"

	"go.uber.org/zap"
)

// Hub fans session events out to every tab sharing a browser session.
type Hub struct {
	// Registered clients by session id
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	handlerRegistry *HandlerRegistry
	logger          *zap.Logger
}

type BroadcastMessage struct {
	// SessionIDs nil means every connected session
	SessionIDs []string
	Channel    wstypes.ChannelType
	Message    *wstypes.WSMessage
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client, 64),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		logger:          logger,
	}
}

// RegisterHandler adds a message handler. Call it before Run.
func (h *Hub) RegisterHandler(handler MessageHandler) error {
	return h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered
// handlers. It reports whether a handler took the message.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.lookup(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

// Join hands a connected client to the hub. It returns false once Run has
// stopped; the caller then owns the connection.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.sessionID] == nil {
		h.clients[client.sessionID] = make(map[*Client]bool)
	}
	h.clients[client.sessionID][client] = true
	metrics.WebsocketClients.Inc()

	h.logger.Info("websocket client connected",
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"session_id": client.sessionID,
		"role":       client.role,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	metrics.WebsocketClients.Dec()
	if len(clients) == 0 {
		delete(h.clients, client.sessionID)
	}

	h.logger.Info("websocket client disconnected",
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.SessionIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, sid := range msg.SessionIDs {
		for client := range h.clients[sid] {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}
}

// enqueue never blocks the caller; a full queue drops the event.
func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("type", string(msg.Message.Type)),
		)
	}
}

// ForceLogout tells every tab of the session that it was logged out.
func (h *Hub) ForceLogout(sessionID, reason string) {
	h.enqueue(&BroadcastMessage{
		SessionIDs: []string{sessionID},
		Channel:    wstypes.ChannelSession,
		Message: wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
			SessionID:  sessionID,
			Reason:     reason,
			Message:    "Sesión cerrada",
			RedirectTo: auth.PathHome,
		}),
	})
}

// SessionExpired tells every tab of the session that its token is gone.
func (h *Hub) SessionExpired(sessionID string) {
	h.enqueue(&BroadcastMessage{
		SessionIDs: []string{sessionID},
		Channel:    wstypes.ChannelSession,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionExpired, wstypes.SessionEventData{
			SessionID:  sessionID,
			Reason:     "expired",
			Message:    "Su sesión ha expirado",
			RedirectTo: auth.PathHome,
		}),
	})
}

// SessionClients returns the number of open connections for a session.
func (h *Hub) SessionClients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sid, clients := range h.clients {
		for client := range clients {
			client.Close()
			metrics.WebsocketClients.Dec()
		}
		delete(h.clients, sid)
	}
}
