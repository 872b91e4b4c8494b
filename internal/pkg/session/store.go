// internal/pkg/session/store.go
package session

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Storage keys. They are always written and cleared as one record.
const (
	KeyToken     = "token"
	KeyRole      = "role"
	KeyUserID    = "userId"
	KeyUsername  = "username"
	KeyUserEmail = "userEmail"
	KeyUserDNI   = "userDni"
	KeyUserRole  = "userRole"
	KeyGymName   = "gymName"
	KeyUser      = "user"
)

// AllKeys lists every key a session record may hold.
var AllKeys = []string{
	KeyToken, KeyRole, KeyUserID, KeyUsername, KeyUserEmail,
	KeyUserDNI, KeyUserRole, KeyGymName, KeyUser,
}

const DefaultTTL = 24 * time.Hour

// Store keeps one key/value record per browser session id.
type Store interface {
	// Load returns the record for sid; an absent record is an empty map.
	Load(ctx context.Context, sid string) (map[string]string, error)
	// Save merges values into the record and refreshes its TTL.
	Save(ctx context.Context, sid string, values map[string]string) error
	// Remove deletes individual keys from the record.
	Remove(ctx context.Context, sid string, keys ...string) error
	// Clear deletes the whole record.
	Clear(ctx context.Context, sid string) error
}

// NewSessionID returns a fresh, lexically sortable session id. The 80
// entropy bits come from crypto/rand; the id is the only browser credential.
func NewSessionID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ValidSessionID rejects cookie values that could not have come from NewSessionID.
func ValidSessionID(sid string) bool {
	_, err := ulid.ParseStrict(sid)
	return err == nil
}
