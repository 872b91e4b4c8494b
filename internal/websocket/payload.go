// internal/websocket/payload.go
package websocket

import (
	"encoding/json"
	"fmt"
)

// decodeData re-decodes a message's loosely typed data field into T.
func decodeData[T any](data interface{}) (T, error) {
	var out T
	if data == nil {
		return out, ErrMissingData
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("encode message data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode message data: %w", err)
	}
	return out, nil
}
