package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/circuitbreaker"
	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/handler"
	"github.com/klya-ai/klya-api/internal/healthcheck"
	"github.com/klya-ai/klya-api/internal/middleware"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/proxy"
	"github.com/klya-ai/klya-api/internal/ratelimit"
	"github.com/klya-ai/klya-api/internal/repository"
	"github.com/klya-ai/klya-api/internal/service"
	"github.com/klya-ai/klya-api/internal/storage"
	"github.com/klya-ai/klya-api/internal/usage"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	log        *slog.Logger
	db         *storage.Database
	redis      *storage.RedisClient
	writer     *usage.BatchWriter
	throttle   *ratelimit.Throttle
	deps       *healthcheck.Checker
	upstream   *proxy.Upstream
	httpServer *http.Server
	cancel     context.CancelFunc
}

// New wires repositories, services and routes. redis may be nil unless
// cfg.RateLimit.Backend is "redis".
func New(cfg *config.Config, db *storage.Database, redis *storage.RedisClient, log *slog.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	keyRepo := repository.NewAPIKeyRepository(db)
	userRepo := repository.NewUserRepository(db)
	usageRepo := repository.NewUsageEventRepository(db)

	var (
		counter service.EventCounter = usageRepo
		sink    usage.Sink           = usage.NewDirectWriter(usageRepo, cfg.Keys.VerifyTimeout.Duration)
		writer  *usage.BatchWriter
	)
	if cfg.RateLimit.Backend == "redis" {
		if redis == nil {
			return nil, fmt.Errorf("rate limit backend is redis but no redis client was provided")
		}
		eventLog := ratelimit.NewRedisEventLog(redis, "")
		writer = usage.NewBatchWriter(usageRepo, cfg.Usage.BufferSize, cfg.Usage.BatchSize, cfg.Usage.FlushInterval.Duration, log)
		counter = eventLog
		// redis answers the rate-limit counts, the database keeps analytics
		sink = usage.Fanout{eventLog, writer}
	}

	upstream, err := proxy.New(proxy.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout.Duration,
		Breaker: circuitbreaker.Config{
			MaxFailures: cfg.Upstream.MaxFailures,
			Cooldown:    cfg.Upstream.BreakerCooldown.Duration,
		},
	}, log)
	if err != nil {
		return nil, err
	}

	owners := service.NewOwnerDirectory(userRepo, cfg.Keys.OwnerCacheTTL.Duration)
	authService := service.NewAuthService(userRepo, owners, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiryHours, log)
	keyService := service.NewAPIKeyService(keyRepo, log)
	verifier := service.NewVerifier(keyRepo, owners, cfg.Keys.VerifyTimeout.Duration, log)
	limits := service.NewRateLimitChecker(counter)
	analytics := service.NewAnalyticsService(usageRepo, limits)

	s := &Server{
		router:   gin.New(),
		config:   cfg,
		log:      log,
		db:       db,
		redis:    redis,
		writer:   writer,
		throttle: ratelimit.NewThrottle(cfg.RateLimit.IPRPS, cfg.RateLimit.IPBurst, 15*time.Minute),
		deps:     healthcheck.NewChecker(healthcheck.Config{}, log),
		upstream: upstream,
	}

	s.setupMiddleware()
	s.setupRoutes(routes{
		auth:      handler.NewAuthHandler(authService, log),
		keys:      handler.NewAPIKeyHandler(keyService, log),
		account:   handler.NewAccountHandler(authService, log),
		analytics: handler.NewAnalyticsHandler(analytics, log),
		health:    s.healthHandler(),
		authSvc:   authService,
		verifier:  verifier,
		limits:    limits,
		sink:      sink,
	})

	return s, nil
}

type routes struct {
	auth      *handler.AuthHandler
	keys      *handler.APIKeyHandler
	account   *handler.AccountHandler
	analytics *handler.AnalyticsHandler
	health    *handler.HealthHandler
	authSvc   *service.AuthService
	verifier  *service.Verifier
	limits    *service.RateLimitChecker
	sink      usage.Sink
}

func (s *Server) healthHandler() *handler.HealthHandler {
	s.deps.Register("database", s.db.Ping)
	if s.redis != nil {
		s.deps.Register("redis", s.redis.Ping)
	}
	return handler.NewHealthHandler(s.deps, s.upstream.Status, s.log)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.Logger(s.log))
	s.router.Use(middleware.CORS(s.config.Server.CORSOrigins))
}

func (s *Server) setupRoutes(r routes) {
	s.router.GET("/health", r.health.Health)

	auth := s.router.Group("/auth")
	{
		throttled := auth.Group("", middleware.IPThrottle(s.throttle))
		throttled.POST("/register", r.auth.Register)
		throttled.POST("/login", r.auth.Login)
		auth.GET("/me", middleware.RequireAuth(r.authSvc), r.auth.Me)
	}

	keys := s.router.Group("/api/keys", middleware.RequireAuth(r.authSvc))
	{
		keys.POST("", r.keys.Create)
		keys.GET("", r.keys.List)
		keys.GET("/:id", r.keys.Get)
		keys.PATCH("/:id", r.keys.Update)
		keys.DELETE("/:id", r.keys.Delete)
		keys.POST("/:id/rotate", r.keys.Rotate)
	}

	v1 := s.router.Group("/v1",
		middleware.APIKeyAuth(r.verifier),
		middleware.RecordUsage(r.sink, s.log),
		middleware.RateLimit(r.limits, s.log),
	)
	{
		v1.GET("/me", middleware.RequirePermission(models.PermissionUserRead), r.account.Get)
		v1.PATCH("/me", middleware.RequirePermission(models.PermissionUserUpdate), r.account.Update)

		v1.GET("/analytics/usage", middleware.RequirePermission(models.PermissionAnalyticsRead), r.analytics.Usage)
		v1.GET("/analytics/events", middleware.RequirePermission(models.PermissionAnalyticsRead), r.analytics.Events)

		v1.POST("/content/generate", middleware.RequirePermission(models.PermissionContentGenerate), s.upstream.Forward("/v1/chat/completions"))
		v1.POST("/audio/transcriptions", middleware.RequirePermission(models.PermissionAudioTranscribe), s.upstream.Forward("/v1/audio/transcriptions"))
		v1.POST("/images/generations", middleware.RequirePermission(models.PermissionImageGenerate), s.upstream.Forward("/v1/images/generations"))
	}
}

// Start launches the background workers. They stop on Shutdown or when ctx ends.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.writer != nil {
		s.writer.Start(ctx)
	}
	s.throttle.StartJanitor(ctx, time.Minute)
	s.deps.Start(ctx)
}

func (s *Server) Run(addr string) error {
	var h http.Handler = s.router
	if s.config.Server.H2C {
		h = h2c.NewHandler(s.router, &http2.Server{})
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  s.config.Server.ReadTimeout.Duration,
		WriteTimeout: s.config.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("server_starting",
		"addr", addr,
		"environment", s.config.Server.Environment,
		"rate_limit_backend", s.config.RateLimit.Backend,
		"h2c", s.config.Server.H2C,
		"upstream_configured", s.upstream.Configured(),
	)

	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP connections, then flushes queued usage events.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server_shutting_down")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	if s.cancel != nil {
		s.cancel()
	}
	if s.writer != nil {
		s.writer.Stop()
	}

	return err
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
