// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	xerrors "fitpower-web/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope returned by every gateway endpoint.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// RequestIDKey is the gin context key the request id middleware writes to.
const RequestIDKey = "request_id"

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	c.Abort()

	resp := Response{
		Success:   false,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	}
	// Raw causes stay in the logs for server errors.
	if err != nil && code < http.StatusInternalServerError {
		resp.Error = err.Error()
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}

	c.JSON(code, resp)
}

// FromError picks the status for err from its failure kind. The message is
// the user-facing one carried by err, or fallback.
func FromError(c *gin.Context, err error, fallback string) {
	message := xerrors.UserMessage(err, fallback)
	switch {
	case errors.Is(err, xerrors.ErrRateLimited):
		Error(c, http.StatusTooManyRequests, message, nil)
	case errors.Is(err, xerrors.ErrBackendRejected), errors.Is(err, xerrors.ErrSessionExpired):
		Error(c, http.StatusUnauthorized, message, nil)
	case errors.Is(err, xerrors.ErrAccountDisabled):
		Error(c, http.StatusForbidden, message, nil)
	case errors.Is(err, xerrors.ErrConnection), errors.Is(err, xerrors.ErrInvalidResponse), errors.Is(err, xerrors.ErrRoleData):
		Error(c, http.StatusBadGateway, message, err)
	default:
		Error(c, http.StatusInternalServerError, message, err)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Unavailable sends a 503 with a Retry-After hint.
func Unavailable(c *gin.Context, retryAfter time.Duration, message string) {
	RetryAfter(c, retryAfter)
	Error(c, http.StatusServiceUnavailable, message, nil)
}

// RetryAfter sets the Retry-After header in whole seconds, rounding up.
func RetryAfter(c *gin.Context, d time.Duration) {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
}
