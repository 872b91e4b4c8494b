package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitpower-web/internal/domain/auth"
	"fitpower-web/internal/middleware"
	"fitpower-web/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type staticChecker struct {
	sess *auth.Session
}

func (s staticChecker) CheckStatus(context.Context, *session.Scope) (*auth.Session, error) {
	return s.sess, nil
}

type fakeHistory struct {
	limit  int
	events []*auth.LoginEvent
	err    error
}

func (f *fakeHistory) ListRecent(_ context.Context, limit int) ([]*auth.LoginEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func newRouter(sess *auth.Session, history LoginHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := middleware.NewAuthMiddleware(staticChecker{sess: sess}, session.NewMemoryStore(time.Hour), middleware.CookieConfig{}, nil)
	h := NewDashboardHandler(history, zap.NewNop())

	r := gin.New()
	r.Use(m.Scope())
	r.GET(auth.PathTrainerDashboard, m.Guard(auth.RoleTrainer), h.Show(auth.RoleTrainer))
	r.GET("/admin/logins", m.Guard(auth.RoleAdmin), h.RecentLogins)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestShowDashboard(t *testing.T) {
	sess := &auth.Session{Token: "secret-token", Roles: []auth.Role{auth.RoleTrainer, auth.RoleClient}, Username: "ana"}
	w := get(newRouter(sess, nil), auth.PathTrainerDashboard)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ana"`)
	assert.NotContains(t, w.Body.String(), "secret-token")
	assert.Contains(t, w.Body.String(), `"links":[{"role":"ROLE_CLIENT","path":"/client"},{"role":"ROLE_TRAINER","path":"/trainer/dashboard"}]`)
}

func TestShowDashboardWrongRole(t *testing.T) {
	sess := &auth.Session{Token: "t", Roles: []auth.Role{auth.RoleClient}}
	w := get(newRouter(sess, nil), auth.PathTrainerDashboard)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, auth.PathClientDashboard, w.Header().Get("Location"))
}

func TestRecentLogins(t *testing.T) {
	admin := &auth.Session{Token: "t", Roles: []auth.Role{auth.RoleAdmin}}
	history := &fakeHistory{events: []*auth.LoginEvent{{ID: 1, Username: "jdoe", Outcome: auth.OutcomeDisabled}}}

	w := get(newRouter(admin, history), "/admin/logins?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, history.limit)
	assert.Contains(t, w.Body.String(), `"outcome":"disabled"`)

	w = get(newRouter(admin, history), "/admin/logins?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(newRouter(admin, &fakeHistory{err: errors.New("db down")}), "/admin/logins")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get(newRouter(admin, nil), "/admin/logins")
	assert.Equal(t, http.StatusOK, w.Code)
}
