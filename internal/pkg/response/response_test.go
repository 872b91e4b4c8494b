package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xerrors "fitpower-web/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"throttled", xerrors.NewUserError(xerrors.ErrRateLimited, "slow down", nil), http.StatusTooManyRequests, "slow down"},
		{"rejected", xerrors.NewUserError(xerrors.ErrBackendRejected, "bad password", nil), http.StatusUnauthorized, "bad password"},
		{"disabled", xerrors.NewUserError(xerrors.ErrAccountDisabled, "disabled", nil), http.StatusForbidden, "disabled"},
		{"backend down", xerrors.NewUserError(xerrors.ErrConnection, "maintenance", nil), http.StatusBadGateway, "maintenance"},
		{"role data", xerrors.NewUserError(xerrors.ErrRoleData, "no profile", nil), http.StatusBadGateway, "no profile"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			FromError(c, tt.err, "fallback")

			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"message":"`+tt.msg+`"`)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	for d, want := range map[time.Duration]string{
		0:                       "1",
		1500 * time.Millisecond: "2",
		15 * time.Minute:        "900",
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		RetryAfter(c, d)
		assert.Equal(t, want, w.Header().Get("Retry-After"))
	}
}
