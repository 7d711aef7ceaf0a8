package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/core/port"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/config"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/database"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/email"
	kafkainfra "github.com/md-arif-islam/rentplan-app-sub001/internal/infra/kafka"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/logger"
	redisinfra "github.com/md-arif-islam/rentplan-app-sub001/internal/infra/redis"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/security"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/telemetry"
	postgresrepo "github.com/md-arif-islam/rentplan-app-sub001/internal/repository/postgres"
	redisrepo "github.com/md-arif-islam/rentplan-app-sub001/internal/repository/redis"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/transport/http/routes"
	"github.com/md-arif-islam/rentplan-app-sub001/internal/usecase"
)

// Application owns the long-lived resources of the service.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	counterStore := redisrepo.NewCounterRepository(redisClient.Client(), redisrepo.CounterConfig{
		KeyPrefix: cfg.Redis.ThrottlePrefix,
	})

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			producer = p
			eventPublisher = kafkainfra.NewEventPublisher(p, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var sink port.NotificationSink
	if strings.EqualFold(cfg.Mail.Driver, "mailgun") {
		mailgunSink, err := email.NewMailgunSink(cfg.Mail, log)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init mailgun sink: %w", err)
		}
		sink = mailgunSink
	} else {
		sink = email.NewLoggingSink(log)
	}

	limiter := usecase.NewRateLimiter(counterStore, log).
		WithFailureHook(func() { provider.CounterStoreFailures().Inc() })

	audit := usecase.NewAuditLogger(repos.Audit, log).
		WithErrorHook(func() { provider.AuditWriteErrors().Inc() })

	tokens := usecase.NewTokenManager(repos.Tokens, repos.Identities)

	authService := usecase.NewAuthService(repos.Identities, tokens, audit, eventPublisher, log)

	resetService := usecase.NewPasswordResetService(
		repos.Identities,
		repos.ResetTickets,
		tokens,
		limiter,
		sink,
		eventPublisher,
		audit,
		repos.Tx,
		log,
	).
		WithTTL(cfg.Reset.TicketTTL).
		WithCallbackURL(cfg.Reset.CallbackURL).
		WithMinScore(cfg.Reset.MinScore).
		WithRateLimit(cfg.RateLimit.PasswordResetMaxAttempts, cfg.RateLimit.PasswordResetWindow)

	engine := routes.Register(routes.Dependencies{
		Config:    cfg,
		Logger:    log,
		Telemetry: provider,
		Database:  pool,
		Cache:     redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Tokens:        tokens,
			PasswordReset: resetService,
			Limiter:       limiter,
			Audit:         audit,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
