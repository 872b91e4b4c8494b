// internal/middleware/helpers.go
package middleware

import (
	"errors"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// GetScope returns the session scope bound by Scope or a guard.
func GetScope(c *gin.Context) (*session.Scope, bool) {
	v, exists := c.Get(scopeKey)
	if !exists {
		return nil, false
	}
	scope, ok := v.(*session.Scope)
	return scope, ok
}

// MustGetScope gets the session scope from context or panics
func MustGetScope(c *gin.Context) *session.Scope {
	scope, ok := GetScope(c)
	if !ok {
		panic("session scope not found in context")
	}
	return scope
}

// GetSession returns the session admitted by a guard.
func GetSession(c *gin.Context) (*auth.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*auth.Session)
	return sess, ok && sess != nil
}

// MustGetSession gets the guarded session from context or panics
func MustGetSession(c *gin.Context) *auth.Session {
	sess, ok := GetSession(c)
	if !ok {
		panic("session not found in context")
	}
	return sess
}

// RotateScope moves the request to a new session id before it is
// authenticated, so a session id planted in the browser never gains a login.
func RotateScope(c *gin.Context) (*session.Scope, error) {
	v, exists := c.Get(binderKey)
	if !exists {
		return nil, errors.New("session scope not bound")
	}
	return v.(*AuthMiddleware).rotateScope(c)
}

// GetRequestID returns the id assigned by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
