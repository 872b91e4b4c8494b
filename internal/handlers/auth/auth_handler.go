// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"
	"time"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/middleware"
	xerrors "fitpower-web/internal/pkg/errors"
	"fitpower-web/internal/pkg/response"
	authUsecase "fitpower-web/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Login ==========

// Login authenticates against the backend and starts the browser session
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "username and password are required", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	scope, err := middleware.RotateScope(c)
	if err != nil {
		h.logger.Error("session rotation failed", zap.Error(err))
		response.Unavailable(c, 2*time.Second, authUsecase.MsgSessionUnavailable)
		return
	}

	sess, err := h.authService.Login(c.Request.Context(), scope, &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		if errors.Is(err, xerrors.ErrRateLimited) {
			response.RetryAfter(c, h.authService.ThrottleWindow())
		}
		response.FromError(c, err, authUsecase.MsgConnectionFailed)
		return
	}

	response.Success(c, http.StatusOK, "login successful", auth.LoginResponse{
		RedirectTo: h.authService.RedirectPath(sess.Roles),
		User:       sess.Public(),
	})
}

// ========== Logout ==========

// Logout clears the browser session
func (h *AuthHandler) Logout(c *gin.Context) {
	scope := middleware.MustGetScope(c)
	if err := h.authService.Logout(c.Request.Context(), scope); err != nil {
		h.logger.Error("logout failed",
			zap.String("session_id", scope.ID()),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", gin.H{
		"redirectTo": auth.PathHome,
	})
}

// ========== Session queries ==========

// GetMe returns the stored user without re-validating the token
func (h *AuthHandler) GetMe(c *gin.Context) {
	sess := h.authService.CurrentUser(c.Request.Context(), middleware.MustGetScope(c))
	if sess == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}
	response.Success(c, http.StatusOK, "current user", sess.Public())
}

// Status validates the session and reports where the user belongs
func (h *AuthHandler) Status(c *gin.Context) {
	sess, err := h.authService.CheckStatus(c.Request.Context(), middleware.MustGetScope(c))
	if err != nil {
		if errors.Is(err, xerrors.ErrSessionExpired) {
			response.Success(c, http.StatusOK, "not authenticated", auth.StatusResponse{Authenticated: false})
			return
		}
		h.logger.Warn("session status check failed", zap.Error(err))
		response.Unavailable(c, 2*time.Second, "session store unavailable")
		return
	}

	response.Success(c, http.StatusOK, "authenticated", auth.StatusResponse{
		Authenticated: true,
		Role:          sess.PrimaryRole().String(),
		RedirectTo:    h.authService.RedirectPath(sess.Roles),
	})
}
