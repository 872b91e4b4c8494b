// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/metrics"
	xerrors "fitpower-web/internal/pkg/errors"
	"fitpower-web/internal/pkg/response"
	"fitpower-web/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	scopeKey      = "session_scope"
	sessionKey    = "session"
	freshScopeKey = "session_scope_fresh"
	binderKey     = "session_binder"

	defaultGuardTimeout = 3 * time.Second
	loadingRetryAfter   = 2 * time.Second
)

// StatusChecker validates the session behind a scope.
type StatusChecker interface {
	CheckStatus(ctx context.Context, scope *session.Scope) (*auth.Session, error)
}

// GuardState is the outcome of evaluating a protected route.
type GuardState string

const (
	StateLoading         GuardState = "loading"
	StateUnauthenticated GuardState = "unauthenticated"
	StateForbidden       GuardState = "forbidden"
	StateAuthorized      GuardState = "authorized"
)

// Decision is what the guard does with a request.
type Decision struct {
	State      GuardState
	Session    *auth.Session
	RedirectTo string
}

// Evaluate runs the status check and matches the session roles against
// allowed. An empty allowed list admits any authenticated user.
func Evaluate(ctx context.Context, checker StatusChecker, scope *session.Scope, allowed []auth.Role) Decision {
	sess, err := checker.CheckStatus(ctx, scope)
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			return Decision{State: StateUnauthenticated, RedirectTo: auth.PathHome}
		}
		return Decision{State: StateLoading}
	}
	if !sess.Complete() {
		return Decision{State: StateUnauthenticated, RedirectTo: auth.PathHome}
	}
	if len(allowed) > 0 && !sess.HasAnyRole(allowed...) {
		return Decision{State: StateForbidden, Session: sess, RedirectTo: auth.RedirectPath(sess.Roles)}
	}
	return Decision{State: StateAuthorized, Session: sess}
}

// CookieConfig describes the session id cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type AuthMiddleware struct {
	checker      StatusChecker
	store        session.Store
	cookie       CookieConfig
	guardTimeout time.Duration
	logger       *zap.Logger
}

func NewAuthMiddleware(checker StatusChecker, store session.Store, cookie CookieConfig, logger *zap.Logger) *AuthMiddleware {
	if cookie.Name == "" {
		cookie.Name = "fitpower_sid"
	}
	if cookie.MaxAge == 0 {
		cookie.MaxAge = session.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		checker:      checker,
		store:        store,
		cookie:       cookie,
		guardTimeout: defaultGuardTimeout,
		logger:       logger,
	}
}

// Scope binds the request to its browser session, issuing a new session id
// cookie when the request carries none or an unusable one.
func (m *AuthMiddleware) Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.bindScope(c)
		c.Next()
	}
}

func (m *AuthMiddleware) bindScope(c *gin.Context) *session.Scope {
	if scope, ok := GetScope(c); ok {
		return scope
	}

	c.Set(binderKey, m)
	sid, err := c.Cookie(m.cookie.Name)
	if err != nil || !session.ValidSessionID(sid) {
		return m.issueScope(c)
	}

	scope := session.NewScope(m.store, sid)
	c.Set(scopeKey, scope)
	return scope
}

// issueScope mints a session id, sends it as the cookie and binds it.
func (m *AuthMiddleware) issueScope(c *gin.Context) *session.Scope {
	sid := session.NewSessionID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookie.Name, sid, int(m.cookie.MaxAge.Seconds()), "/", "", m.cookie.Secure, true)

	scope := session.NewScope(m.store, sid)
	c.Set(scopeKey, scope)
	c.Set(freshScopeKey, true)
	return scope
}

// rotateScope drops the record under the request's session id and moves
// the request to a new one. An id minted during this request is kept.
func (m *AuthMiddleware) rotateScope(c *gin.Context) (*session.Scope, error) {
	old := m.bindScope(c)
	if c.GetBool(freshScopeKey) {
		return old, nil
	}
	if err := old.Clear(context.WithoutCancel(c.Request.Context())); err != nil {
		return nil, err
	}
	metrics.SessionClears.WithLabelValues("rotated").Inc()
	return m.issueScope(c), nil
}

// Guard protects a page route. Unauthenticated visitors go to the login
// page and users without an allowed role go to their own landing route.
func (m *AuthMiddleware) Guard(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := m.evaluate(c, roles)
		switch d.State {
		case StateAuthorized:
			c.Set(sessionKey, d.Session)
			c.Next()
		case StateLoading:
			response.Unavailable(c, loadingRetryAfter, "Cargando sesión...")
		default:
			c.Redirect(http.StatusFound, d.RedirectTo)
			c.Abort()
		}
	}
}

// RequireSession protects a JSON route: it answers 401 instead of
// redirecting.
func (m *AuthMiddleware) RequireSession(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := m.evaluate(c, roles)
		switch d.State {
		case StateAuthorized:
			c.Set(sessionKey, d.Session)
			c.Next()
		case StateLoading:
			response.Unavailable(c, loadingRetryAfter, "session store unavailable")
		case StateForbidden:
			response.Error(c, http.StatusForbidden, "insufficient permissions", nil, gin.H{
				"redirectTo": d.RedirectTo,
			})
		default:
			response.Unauthorized(c, "authentication required")
		}
	}
}

func (m *AuthMiddleware) evaluate(c *gin.Context, roles []auth.Role) Decision {
	scope := m.bindScope(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), m.guardTimeout)
	defer cancel()

	d := Evaluate(ctx, m.checker, scope, roles)
	metrics.GuardDecisions.WithLabelValues(string(d.State)).Inc()
	if d.State == StateLoading {
		m.logger.Warn("session check did not complete",
			zap.String("path", c.Request.URL.Path),
			zap.String("session_id", scope.ID()),
		)
	}
	return d
}
