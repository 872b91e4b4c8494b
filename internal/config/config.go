package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fitpower-web/internal/pkg/jwt"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type AppConfig struct {
	// Server
	HTTPAddr        string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	StartupTimeout  time.Duration
	CORSOrigins     []string
	// Proxies whose X-Forwarded-For is believed, none when empty
	TrustedProxies []string

	// Backend
	BackendURL     string
	BackendTimeout time.Duration

	// Session store
	SessionStore  string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool

	// Redis
	RedisAddrs   []string
	RedisPass    string
	RedisDB      int
	RedisCluster bool

	// JWT
	JWT jwt.Config

	// Login throttling
	LoginMaxAttempts int64
	LoginWindow      time.Duration

	// Login audit, disabled when empty
	DatabaseURL string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		Env:             getEnv("APP_ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StartupTimeout:  getEnvDuration("STARTUP_TIMEOUT", 30*time.Second),
		CORSOrigins:     getEnvSlice("CORS_ORIGINS", nil),
		TrustedProxies:  getEnvSlice("TRUSTED_PROXIES", nil),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8081"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),

		SessionStore:  strings.ToLower(getEnv("SESSION_STORE", StoreRedis)),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCookie: getEnv("SESSION_COOKIE", "fitpower_sid"),
		CookieSecure:  getEnvBool("COOKIE_SECURE", true),

		RedisAddrs:   getEnvSlice("REDIS_ADDR", []string{"localhost:6379"}),
		RedisPass:    getEnv("REDIS_PASS", ""),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RedisCluster: getEnvBool("REDIS_CLUSTER", false),

		JWT: jwt.Config{
			PubPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),
		},

		LoginMaxAttempts: int64(getEnvInt("LOGIN_MAX_ATTEMPTS", 5)),
		LoginWindow:      getEnvDuration("LOGIN_WINDOW", 15*time.Minute),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
}

// Validate rejects settings the server cannot start with.
func (c AppConfig) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	switch c.SessionStore {
	case StoreRedis:
		if len(c.RedisAddrs) == 0 {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, c.SessionStore)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	return nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
