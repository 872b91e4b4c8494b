// internal/websocket/handler.go
package websocket

import (
	"context"
	"fmt"

	wstypes "fitpower-web/internal/domain/websocket"
)

// MessageHandler answers client events beyond the built-in ping and
// subscription messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// builtinEvents are answered by Client.handleMessage directly.
var builtinEvents = map[wstypes.EventType]bool{
	wstypes.EventTypePing:        true,
	wstypes.EventTypeSubscribe:   true,
	wstypes.EventTypeUnsubscribe: true,
}

// HandlerRegistry routes each event type to exactly one handler. It is
// filled before Run starts and only read afterwards.
type HandlerRegistry struct {
	handlers map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[wstypes.EventType]MessageHandler)}
}

// Register claims every event the handler supports. Nothing is registered
// when one of them is built in or already taken.
func (r *HandlerRegistry) Register(handler MessageHandler) error {
	events := handler.SupportedEvents()
	for _, ev := range events {
		if builtinEvents[ev] {
			return fmt.Errorf("%w: %s", ErrReservedEvent, ev)
		}
		if _, taken := r.handlers[ev]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, ev)
		}
	}
	for _, ev := range events {
		r.handlers[ev] = handler
	}
	return nil
}

func (r *HandlerRegistry) lookup(eventType wstypes.EventType) (MessageHandler, bool) {
	handler, ok := r.handlers[eventType]
	return handler, ok
}
