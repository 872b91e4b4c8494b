// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrClientClosed     = errors.New("client connection closed")
	ErrSendBufferFull   = errors.New("client send buffer full")
	ErrMissingData      = errors.New("message has no data")
	ErrReservedEvent    = errors.New("event is handled by the client itself")
	ErrDuplicateHandler = errors.New("event already has a handler")
)
