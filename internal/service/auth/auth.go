// internal/service/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fitpower-web/internal/backend"
	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/metrics"
	xerrors "fitpower-web/internal/pkg/errors"
	"fitpower-web/internal/pkg/jwt"
	"fitpower-web/internal/pkg/session"

	"go.uber.org/zap"
)

// Backend is the part of the REST backend the login flow needs.
type Backend interface {
	Signin(ctx context.Context, req auth.SigninRequest) (*auth.SigninResponse, error)
	FetchTrainer(ctx context.Context, token, dni string) (*auth.TrainerData, error)
	FetchNutritionist(ctx context.Context, token, dni string) (*auth.NutritionistData, error)
	FetchClient(ctx context.Context, token, dni string) (*auth.ClientData, error)
}

// LoginLimiter throttles repeated login attempts.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, username string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, username string) error
	Window() time.Duration
}

// AuditRecorder persists the outcome of each login attempt.
type AuditRecorder interface {
	RecordLogin(ctx context.Context, event *auth.LoginEvent) error
}

// SessionNotifier tells the open tabs of a browser session that it ended.
type SessionNotifier interface {
	ForceLogout(sessionID, reason string)
	SessionExpired(sessionID string)
}

type AuthService struct {
	backend  Backend
	resolver *jwt.Resolver
	limiter  LoginLimiter
	audit    AuditRecorder
	notifier SessionNotifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*AuthService)

func WithLimiter(l LoginLimiter) Option        { return func(s *AuthService) { s.limiter = l } }
func WithAuditRecorder(a AuditRecorder) Option { return func(s *AuthService) { s.audit = a } }
func WithNotifier(n SessionNotifier) Option    { return func(s *AuthService) { s.notifier = n } }
func WithClock(now func() time.Time) Option    { return func(s *AuthService) { s.now = now } }

func NewAuthService(b Backend, resolver *jwt.Resolver, logger *zap.Logger, opts ...Option) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		backend:  b,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ========== Login ==========

// Login authenticates against the backend and fills the session scope. Any
// failure leaves the scope empty.
func (s *AuthService) Login(ctx context.Context, scope *session.Scope, req *auth.LoginRequest) (*auth.Session, error) {
	sess, err := s.login(ctx, scope, req)
	if err != nil {
		s.clear(ctx, scope, "login_failed")
		outcome := outcomeFor(err)
		metrics.LoginAttempts.WithLabelValues(string(outcome)).Inc()
		s.record(ctx, scope, req, "", outcome, err.Error())
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues(string(auth.OutcomeSuccess)).Inc()
	s.record(ctx, scope, req, sess.PrimaryRole().String(), auth.OutcomeSuccess, "")
	s.logger.Info("user logged in",
		zap.String("username", sess.Username),
		zap.String("role", sess.PrimaryRole().String()),
		zap.String("session_id", scope.ID()),
	)
	return sess, nil
}

func (s *AuthService) login(ctx context.Context, scope *session.Scope, req *auth.LoginRequest) (*auth.Session, error) {
	if s.limiter != nil {
		allowed, _, err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, req.Username)
		if err != nil {
			s.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, xerrors.NewUserError(xerrors.ErrRateLimited, MsgTooManyAttempts, nil)
		}
	}

	if err := scope.Clear(ctx); err != nil {
		return nil, xerrors.NewUserError(xerrors.ErrInternal, MsgSessionUnavailable, err)
	}

	resp, err := s.backend.Signin(ctx, auth.SigninRequest{Username: req.Username, Password: req.Password})
	if err != nil {
		return nil, signinError(err)
	}

	roles := auth.ParseRoles(resp.Roles)
	if resp.Token == "" || len(roles) == 0 {
		msg := MsgInvalidSignin
		if resp.Message != "" {
			msg = resp.Message
		}
		return nil, xerrors.NewUserError(xerrors.ErrInvalidResponse, msg, nil)
	}

	sess := &auth.Session{
		Token:    resp.Token,
		Roles:    roles,
		ID:       resp.ID,
		Username: resp.Username,
		Email:    resp.Email,
		DNI:      resp.DNI,
		GymName:  resp.GymName,
	}
	if err := scope.Save(ctx, sessionFields(sess)); err != nil {
		return nil, xerrors.NewUserError(xerrors.ErrInternal, MsgSessionUnavailable, err)
	}

	if err := s.loadRoleData(ctx, sess); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, xerrors.NewUserError(xerrors.ErrInternal, MsgSessionUnavailable, err)
	}
	if err := scope.Save(ctx, map[string]string{session.KeyUser: string(raw)}); err != nil {
		return nil, xerrors.NewUserError(xerrors.ErrInternal, MsgSessionUnavailable, err)
	}

	if s.limiter != nil {
		if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Username); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}
	return sess, nil
}

// loadRoleData fetches the profile record of every profile-backed role the
// user holds. A record flagged inactive aborts the login.
func (s *AuthService) loadRoleData(ctx context.Context, sess *auth.Session) error {
	for _, role := range []auth.Role{auth.RoleTrainer, auth.RoleNutritionist, auth.RoleClient} {
		if !sess.HasRole(role) {
			continue
		}

		var (
			profile *auth.RoleProfile
			err     error
		)
		switch role {
		case auth.RoleTrainer:
			var data *auth.TrainerData
			if data, err = s.backend.FetchTrainer(ctx, sess.Token, sess.DNI); err == nil {
				sess.TrainerData, profile = data, &data.RoleProfile
			}
		case auth.RoleNutritionist:
			var data *auth.NutritionistData
			if data, err = s.backend.FetchNutritionist(ctx, sess.Token, sess.DNI); err == nil {
				sess.NutritionistData, profile = data, &data.RoleProfile
			}
		case auth.RoleClient:
			var data *auth.ClientData
			if data, err = s.backend.FetchClient(ctx, sess.Token, sess.DNI); err == nil {
				sess.ClientData, profile = data, &data.RoleProfile
			}
		}

		if err != nil {
			s.logger.Warn("failed to fetch role data",
				zap.String("role", role.String()),
				zap.String("dni", sess.DNI),
				zap.Error(err),
			)
			return xerrors.NewUserError(xerrors.ErrRoleData, roleDataMessages[role], err)
		}
		if profile.Disabled() {
			return xerrors.NewUserError(xerrors.ErrAccountDisabled, MsgAccountDisabled, nil)
		}
	}
	return nil
}

// ========== Logout ==========

// Logout wipes the session. The backend keeps no session state, so nothing
// is revoked there.
func (s *AuthService) Logout(ctx context.Context, scope *session.Scope) error {
	if err := scope.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	metrics.SessionClears.WithLabelValues("logout").Inc()
	if s.notifier != nil {
		s.notifier.ForceLogout(scope.ID(), "logout")
	}
	return nil
}

// ========== Session queries ==========

// CurrentUser returns the stored session, or nil. A record that no longer
// parses is dropped.
func (s *AuthService) CurrentUser(ctx context.Context, scope *session.Scope) *auth.Session {
	raw, err := scope.Get(ctx, session.KeyUser)
	if err != nil {
		s.logger.Warn("failed to read session", zap.String("session_id", scope.ID()), zap.Error(err))
		return nil
	}
	if raw == "" {
		return nil
	}

	var sess auth.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("discarding corrupted session entry",
			zap.String("session_id", scope.ID()),
			zap.Error(err),
		)
		if err := scope.Remove(context.WithoutCancel(ctx), session.KeyUser); err != nil {
			s.logger.Warn("failed to remove corrupted session entry", zap.Error(err))
		}
		metrics.SessionClears.WithLabelValues("corrupted").Inc()
		return nil
	}
	return &sess
}

// IsAuthenticated is a local expiry check on the stored token.
func (s *AuthService) IsAuthenticated(ctx context.Context, scope *session.Scope) bool {
	token, err := scope.Get(ctx, session.KeyToken)
	if err != nil {
		s.logger.Warn("failed to read session token", zap.String("session_id", scope.ID()), zap.Error(err))
		return false
	}
	if token == "" {
		return false
	}
	return s.resolver.Valid(token)
}

// AccessToken returns the stored token while it is still valid.
func (s *AuthService) AccessToken(ctx context.Context, scope *session.Scope) (string, bool) {
	token, err := scope.Get(ctx, session.KeyToken)
	if err != nil || token == "" {
		return "", false
	}
	if !s.resolver.Valid(token) {
		return "", false
	}
	return token, true
}

// CheckStatus validates the stored session and clears it when it is no
// longer usable. Store failures are returned unchanged so callers can tell
// "no session" from "could not look".
func (s *AuthService) CheckStatus(ctx context.Context, scope *session.Scope) (*auth.Session, error) {
	values, err := scope.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(values) == 0 {
		return nil, xerrors.ErrSessionExpired
	}

	token := values[session.KeyToken]
	roles := auth.SplitRoles(values[session.KeyRole])
	if token == "" || len(roles) == 0 {
		return nil, s.invalidate(ctx, scope, "incomplete")
	}
	if _, err := s.resolver.Resolve(token); err != nil {
		reason := "invalid_token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		return nil, s.invalidate(ctx, scope, reason)
	}

	sess := s.CurrentUser(ctx, scope)
	if sess == nil || sess.Token != token {
		sess = sessionFromValues(values, roles)
	}
	return sess, nil
}

// RedirectPath is the landing route for the given roles.
func (s *AuthService) RedirectPath(roles []auth.Role) string {
	return auth.RedirectPath(roles)
}

// ThrottleWindow is how long a throttled caller should wait, zero without a limiter.
func (s *AuthService) ThrottleWindow() time.Duration {
	if s.limiter == nil {
		return 0
	}
	return s.limiter.Window()
}

// ========== Helpers ==========

func (s *AuthService) invalidate(ctx context.Context, scope *session.Scope, reason string) error {
	if err := scope.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to clear invalid session: %w", err)
	}
	metrics.SessionClears.WithLabelValues(reason).Inc()
	s.logger.Info("session invalidated",
		zap.String("session_id", scope.ID()),
		zap.String("reason", reason),
	)
	if s.notifier != nil {
		s.notifier.SessionExpired(scope.ID())
	}
	return xerrors.ErrSessionExpired
}

func (s *AuthService) clear(ctx context.Context, scope *session.Scope, reason string) {
	if err := scope.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("failed to clear session",
			zap.String("session_id", scope.ID()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	metrics.SessionClears.WithLabelValues(reason).Inc()
}

func (s *AuthService) record(ctx context.Context, scope *session.Scope, req *auth.LoginRequest, role string, outcome auth.LoginOutcome, message string) {
	if s.audit == nil {
		return
	}
	event := &auth.LoginEvent{
		SessionID:  scope.ID(),
		Username:   req.Username,
		Role:       role,
		Outcome:    outcome,
		Message:    message,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		OccurredAt: s.now().UTC(),
	}
	if err := s.audit.RecordLogin(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to record login event", zap.Error(err))
	}
}

func signinError(err error) error {
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" {
		// a failing backend keeps its message but stays a gateway error
		if se.StatusCode >= http.StatusInternalServerError {
			return xerrors.NewUserError(xerrors.ErrConnection, se.Message, err)
		}
		return xerrors.NewUserError(xerrors.ErrBackendRejected, se.Message, err)
	}
	return xerrors.NewUserError(xerrors.ErrConnection, MsgConnectionFailed, err)
}

func outcomeFor(err error) auth.LoginOutcome {
	switch {
	case errors.Is(err, xerrors.ErrRateLimited):
		return auth.OutcomeThrottled
	case errors.Is(err, xerrors.ErrAccountDisabled):
		return auth.OutcomeDisabled
	case errors.Is(err, xerrors.ErrBackendRejected), errors.Is(err, xerrors.ErrInvalidResponse):
		return auth.OutcomeRejected
	default:
		return auth.OutcomeUnavailable
	}
}

// sessionFields is the flat projection of a session into storage keys.
func sessionFields(sess *auth.Session) map[string]string {
	return map[string]string{
		session.KeyToken:     sess.Token,
		session.KeyRole:      auth.JoinRoles(sess.Roles),
		session.KeyUserID:    strconv.FormatInt(sess.ID, 10),
		session.KeyUsername:  sess.Username,
		session.KeyUserEmail: sess.Email,
		session.KeyUserDNI:   sess.DNI,
		session.KeyUserRole:  sess.PrimaryRole().String(),
		session.KeyGymName:   sess.GymName,
	}
}

func sessionFromValues(values map[string]string, roles []auth.Role) *auth.Session {
	id, _ := strconv.ParseInt(values[session.KeyUserID], 10, 64)
	return &auth.Session{
		Token:    values[session.KeyToken],
		Roles:    roles,
		ID:       id,
		Username: values[session.KeyUsername],
		Email:    values[session.KeyUserEmail],
		DNI:      values[session.KeyUserDNI],
		GymName:  values[session.KeyGymName],
	}
}
