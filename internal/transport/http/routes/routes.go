package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/config"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/telemetry"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/transport/http/handlers"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/transport/http/middleware"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Tokens        *usecase.TokenManager
	PasswordReset *usecase.PasswordResetService
	Limiter       *usecase.RateLimiter
	Audit         *usecase.AuditLogger
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Telemetry *telemetry.Provider
	Services  ServiceSet
	Database  DatabaseChecker
	Cache     CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		TotalRequests: deps.Telemetry.RequestCounter(),
	}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Tokens)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	throttle := middleware.NewThrottle(
		deps.Services.Limiter,
		deps.Services.Audit,
		deps.Telemetry.ThrottleDenials(),
		deps.Logger,
	)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(
			authGroup,
			authMiddleware,
			buildThrottleChain(throttle, authThrottleRule(deps.Config)),
			buildThrottleChain(throttle, apiThrottleRule(deps.Config)),
		)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		resetGroup := api.Group("/password/reset")
		passwordHandler.RegisterRoutes(resetGroup, buildThrottleChain(throttle, resetThrottleRule(deps.Config))...)
	}

	return r
}

func buildThrottleChain(throttle *middleware.Throttle, rule middleware.ThrottleRule) []gin.HandlerFunc {
	if throttle == nil || rule.Limit <= 0 {
		return nil
	}
	return []gin.HandlerFunc{throttle.Gate(rule)}
}

func authThrottleRule(cfg *config.AppConfig) middleware.ThrottleRule {
	if cfg == nil {
		return middleware.ThrottleRule{}
	}

	return middleware.ThrottleRule{
		Type:      "auth",
		Limit:     cfg.RateLimit.AuthMaxAttempts,
		Window:    windowOrDefault(cfg.RateLimit.AuthWindow),
		PeekEmail: true,
	}
}

func resetThrottleRule(cfg *config.AppConfig) middleware.ThrottleRule {
	if cfg == nil {
		return middleware.ThrottleRule{}
	}

	return middleware.ThrottleRule{
		Type:      "password_reset",
		Limit:     cfg.RateLimit.PasswordResetMaxAttempts,
		Window:    windowOrDefault(cfg.RateLimit.PasswordResetWindow),
		PeekEmail: true,
	}
}

func apiThrottleRule(cfg *config.AppConfig) middleware.ThrottleRule {
	if cfg == nil {
		return middleware.ThrottleRule{}
	}

	return middleware.ThrottleRule{
		Type:   "api",
		Limit:  cfg.RateLimit.APIMaxAttempts,
		Window: windowOrDefault(cfg.RateLimit.APIWindow),
	}
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}
