package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "SESSION_STORE", "SESSION_TTL", "REDIS_ADDR", "CORS_ORIGINS", "TRUSTED_PROXIES", "COOKIE_SECURE", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"localhost:6379"}, cfg.RedisAddrs)
	assert.True(t, cfg.CookieSecure)
	assert.Nil(t, cfg.CORSOrigins)
	assert.Nil(t, cfg.TrustedProxies)
	assert.Empty(t, cfg.DatabaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSION_STORE", "Memory")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test,")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
	assert.Equal(t, int64(3), cfg.LoginMaxAttempts)
	assert.Equal(t, 0, cfg.RedisDB, "unparsable values fall back")
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		t.Setenv("SESSION_STORE", "")
		return Load()
	}

	cfg := base()
	cfg.SessionStore = "etcd"
	assert.ErrorContains(t, cfg.Validate(), "SESSION_STORE")

	cfg = base()
	cfg.BackendURL = ""
	assert.ErrorContains(t, cfg.Validate(), "BACKEND_URL")

	cfg = base()
	cfg.LoginWindow = 0
	assert.Error(t, cfg.Validate())
}
