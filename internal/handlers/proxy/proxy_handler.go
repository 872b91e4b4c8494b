// internal/handlers/proxy/proxy_handler.go
package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"fitpower-web/internal/middleware"
	"fitpower-web/internal/pkg/response"
	"fitpower-web/internal/pkg/session"
	authUsecase "fitpower-web/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenSource yields the access token of a session while it is valid.
type TokenSource interface {
	AccessToken(ctx context.Context, scope *session.Scope) (string, bool)
}

// ProxyHandler forwards /api/v1 calls to the backend with the session's
// bearer token attached, so the token never reaches the browser.
type ProxyHandler struct {
	tokens TokenSource
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

func NewProxyHandler(target *url.URL, tokens TokenSource, logger *zap.Logger) *ProxyHandler {
	h := &ProxyHandler{tokens: tokens, logger: logger}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
		},
		ErrorHandler: h.handleError,
	}
	return h
}

// Forward proxies the request. Any Authorization header sent by the browser
// is replaced.
func (h *ProxyHandler) Forward(c *gin.Context) {
	scope := middleware.MustGetScope(c)

	c.Request.Header.Del("Authorization")
	if token, ok := h.tokens.AccessToken(c.Request.Context(), scope); ok {
		c.Request.Header.Set("Authorization", "Bearer "+token)
	}

	h.proxy.ServeHTTP(c.Writer, c.Request)
}

func (h *ProxyHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("backend proxy failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(response.Response{
		Success: false,
		Message: authUsecase.MsgConnectionFailed,
	})
}
