// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fitpower-web/internal/backend"
	"fitpower-web/internal/config"
	"fitpower-web/internal/db"
	authHandler "fitpower-web/internal/handlers/auth"
	dashboardHandler "fitpower-web/internal/handlers/dashboard"
	proxyHandler "fitpower-web/internal/handlers/proxy"
	wsHandler "fitpower-web/internal/handlers/websocket"
	"fitpower-web/internal/metrics"
	"fitpower-web/internal/middleware"
	"fitpower-web/internal/pkg/jwt"
	"fitpower-web/internal/pkg/session"
	"fitpower-web/internal/repository/postgres"
	authUsecase "fitpower-web/internal/service/auth"
	"fitpower-web/internal/websocket"
	wsHandlers "fitpower-web/internal/websocket/handler"

	"github.com/cenkalti/backoff/v5"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	mu   sync.Mutex
	http *http.Server

	redis      redis.UniversalClient
	pool       *pgxpool.Pool
	stopHub    context.CancelFunc
	hubStopped chan struct{}
}

func NewServer() *Server {
	cfg := config.Load()
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg}
}

// newEngine builds the gin engine. Client IPs come from X-Forwarded-For only
// when the peer is one of cfg.TrustedProxies.
func newEngine(cfg config.AppConfig) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	return engine, nil
}

// Start builds every dependency, then serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	engine, err := newEngine(s.cfg)
	if err != nil {
		return err
	}
	s.engine = engine

	// ----- Logger -----
	logger, err := newLogger(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()

	// ----- Session store & login limiter -----
	var (
		store   session.Store
		limiter authUsecase.LoginLimiter
	)
	switch s.cfg.SessionStore {
	case config.StoreMemory:
		logger.Warn("using in-memory session store; sessions are lost on restart")
		store = session.NewMemoryStore(s.cfg.SessionTTL)
		limiter = session.NewMemoryRateLimiter(s.cfg.LoginMaxAttempts, s.cfg.LoginWindow)
	default:
		redisClient, err := retry(ctx, s.cfg.StartupTimeout, logger, "redis", func() (redis.UniversalClient, error) {
			return db.NewRedisClient(ctx, db.RedisConfig{
				ClusterMode: s.cfg.RedisCluster,
				Addresses:   s.cfg.RedisAddrs,
				Password:    s.cfg.RedisPass,
				DB:          s.cfg.RedisDB,
				PoolSize:    10,
			})
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.mu.Lock()
		s.redis = redisClient
		s.mu.Unlock()
		logger.Info("connected to redis", zap.Strings("addrs", s.cfg.RedisAddrs))
		store = session.NewRedisStore(redisClient, s.cfg.SessionTTL)
		limiter = session.NewRateLimiter(redisClient, s.cfg.LoginMaxAttempts, s.cfg.LoginWindow)
	}

	// ----- Login audit (optional) -----
	var auditRepo *postgres.LoginAuditRepository
	if s.cfg.DatabaseURL != "" {
		pool, err := retry(ctx, s.cfg.StartupTimeout, logger, "postgres", func() (*pgxpool.Pool, error) {
			return db.ConnectDB(ctx, s.cfg.DatabaseURL)
		})
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.mu.Lock()
		s.pool = pool
		s.mu.Unlock()
		auditRepo = postgres.NewLoginAuditRepository(pool)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare login audit schema: %w", err)
		}
		logger.Info("login audit enabled")
	}

	// ----- JWT resolver -----
	resolver, err := jwt.LoadResolver(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT resolver: %w", err)
	}
	if s.cfg.JWT.PubPath == "" {
		logger.Warn("JWT_PUBLIC_KEY_PATH not set, token signatures are not verified")
	}

	// ----- Backend client -----
	backendClient, err := backend.NewClient(s.cfg.BackendURL, s.cfg.BackendTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to build backend client: %w", err)
	}

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)

	// ----- Services (Usecases) -----
	opts := []authUsecase.Option{
		authUsecase.WithLimiter(limiter),
		authUsecase.WithNotifier(hub),
	}
	if auditRepo != nil {
		opts = append(opts, authUsecase.WithAuditRecorder(auditRepo))
	}
	authService := authUsecase.NewAuthService(backendClient, resolver, logger, opts...)

	if err := hub.RegisterHandler(wsHandlers.NewSessionStatusHandler(authService, resolver)); err != nil {
		return fmt.Errorf("failed to register websocket handler: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubStopped := make(chan struct{})
	go func() {
		defer close(hubStopped)
		hub.Run(hubCtx)
	}()
	s.mu.Lock()
	s.stopHub, s.hubStopped = stopHub, hubStopped
	s.mu.Unlock()

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService, store, middleware.CookieConfig{
		Name:   s.cfg.SessionCookie,
		MaxAge: s.cfg.SessionTTL,
		Secure: s.cfg.CookieSecure,
	}, logger)

	s.engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSOrigins),
		authMiddleware.Scope(),
	)

	// ----- Handlers -----
	var history dashboardHandler.LoginHistory
	if auditRepo != nil {
		history = auditRepo
	}
	handlers := &Handlers{
		AuthHandler:      authHandler.NewAuthHandler(authService, logger),
		DashboardHandler: dashboardHandler.NewDashboardHandler(history, logger),
		ProxyHandler:     proxyHandler.NewProxyHandler(backendClient.BaseURL(), authService, logger),
		WSHandler:        wsHandler.NewWebSocketHandler(hub, authService, s.cfg.CORSOrigins, logger),
		AuthMiddleware:   authMiddleware,
		Health:           s.healthChecks(),
		Metrics:          registry,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil
	}
	s.http = srv
	s.mu.Unlock()

	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("backend", s.cfg.BackendURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, stops the hub and closes the pools.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, stopHub, hubStopped := s.http, s.stopHub, s.hubStopped
	redisClient, pool, logger := s.redis, s.pool, s.logger
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if stopHub != nil {
		stopHub()
		select {
		case <-hubStopped:
		case <-ctx.Done():
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if pool != nil {
		pool.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
	return errors.Join(errs...)
}

func (s *Server) healthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if client := s.redis; client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if pool := s.pool; pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}

// retry keeps calling connect with exponential backoff until it succeeds,
// ctx ends or maxElapsed passes.
func retry[T any](ctx context.Context, maxElapsed time.Duration, logger *zap.Logger, name string, connect func() (T, error)) (T, error) {
	return backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("dependency not ready, retrying",
				zap.String("dependency", name),
				zap.Duration("next_attempt", next),
				zap.Error(err),
			)
		}),
	)
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
