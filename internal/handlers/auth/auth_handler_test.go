package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fitpower-web/internal/backend"
	"fitpower-web/internal/middleware"
	"fitpower-web/internal/pkg/jwt"
	"fitpower-web/internal/pkg/session"
	authUsecase "fitpower-web/internal/service/auth"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &jwt.Claims{
		Roles:            []string{"ROLE_ADMIN"},
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(exp)},
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

type testApp struct {
	router *gin.Engine
	store  *session.MemoryStore
}

func newTestApp(t *testing.T, signin http.HandlerFunc, opts ...authUsecase.Option) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(signin)
	t.Cleanup(srv.Close)
	client, err := backend.NewClient(srv.URL, time.Second, nil)
	require.NoError(t, err)

	store := session.NewMemoryStore(time.Hour)
	svc := authUsecase.NewAuthService(client, jwt.NewResolver(), zap.NewNop(), opts...)
	m := middleware.NewAuthMiddleware(svc, store, middleware.CookieConfig{Name: "sid"}, nil)
	h := NewAuthHandler(svc, zap.NewNop())

	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.Use(m.Scope())
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", h.GetMe)
	r.GET("/auth/status", h.Status)
	return &testApp{router: r, store: store}
}

func (a *testApp) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.serve(req)
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// sessionCookie returns the last sid cookie the response set.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var sid *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			sid = c
		}
	}
	require.NotNil(t, sid, "no session cookie issued")
	return sid
}

func adminSignin(t *testing.T) http.HandlerFunc {
	tok := token(t, time.Now().Add(time.Hour))
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": tok, "roles": []string{"ROLE_ADMIN"}, "id": 1, "username": "boss",
		})
	}
}

func TestLoginFlow(t *testing.T) {
	tok := token(t, time.Now().Add(time.Hour))
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": tok, "roles": []string{"ROLE_ADMIN"}, "id": 1, "username": "boss",
		})
	})

	w := app.do(http.MethodPost, "/auth/login", `{"username":"boss","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.JSONEq(t, `"/admin/dashboard"`, string(mustField(t, env.Data, "redirectTo")))
	assert.NotContains(t, w.Body.String(), tok, "token never sent to the browser")
	sid := sessionCookie(t, w)

	w = app.do(http.MethodGet, "/auth/me", "", sid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"boss"`)

	w = app.do(http.MethodGet, "/auth/status", "", sid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `true`, string(mustField(t, decode(t, w).Data, "authenticated")))

	w = app.do(http.MethodPost, "/auth/logout", "", sid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, app.store.Len())

	w = app.do(http.MethodGet, "/auth/me", "", sid)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejected(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Usuario o contraseña incorrectos"}`))
	})

	w := app.do(http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Usuario o contraseña incorrectos", decode(t, w).Message)
	assert.Zero(t, app.store.Len())
}

func TestLoginIssuesNewSessionID(t *testing.T) {
	app := newTestApp(t, adminSignin(t))
	planted := &http.Cookie{Name: "sid", Value: session.NewSessionID()}

	w := app.do(http.MethodPost, "/auth/login", `{"username":"boss","password":"pw"}`, planted)
	require.Equal(t, http.StatusOK, w.Code)
	issued := sessionCookie(t, w)
	assert.NotEqual(t, planted.Value, issued.Value)
	assert.True(t, issued.HttpOnly)
	assert.Equal(t, 1, app.store.Len())

	w = app.do(http.MethodGet, "/auth/me", "", planted)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/auth/me", "", issued)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWithPriorSessionDropsIt(t *testing.T) {
	app := newTestApp(t, adminSignin(t))

	w := app.do(http.MethodPost, "/auth/login", `{"username":"boss","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	first := sessionCookie(t, w)

	w = app.do(http.MethodPost, "/auth/login", `{"username":"boss","password":"pw"}`, first)
	require.Equal(t, http.StatusOK, w.Code)
	second := sessionCookie(t, w)
	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, 1, app.store.Len())
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/auth/me", "", first).Code)
}

func TestLoginThrottleIgnoresForwardedFor(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	}, authUsecase.WithLimiter(session.NewMemoryRateLimiter(5, time.Minute)))

	var w *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"x","password":"y"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w = app.serve(req)
	}

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, authUsecase.MsgTooManyAttempts, decode(t, w).Message)
}

func TestLoginBackendFailureMessage(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"Servicio en mantenimiento"}`))
	})

	w := app.do(http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Servicio en mantenimiento", decode(t, w).Message)
}

func TestLoginValidation(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})

	w := app.do(http.MethodPost, "/auth/login", `{"username":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusAnonymous(t *testing.T) {
	app := newTestApp(t, http.NotFound)

	w := app.do(http.MethodGet, "/auth/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `false`, string(mustField(t, decode(t, w).Data, "authenticated")))
}

func mustField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	v, ok := m[key]
	require.True(t, ok, "missing field %s", key)
	return v
}
