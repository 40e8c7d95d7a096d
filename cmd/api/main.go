// Package main - точка входа HTTP API приёмной кампании.
//
// API обслуживает проверяющих (следующий неоценённый студент, выставление
// оценки) и администраторов (рейтинг, выгрузка в xlsx, решения о зачислении),
// а также самих студентов, которые принимают выданное им предложение.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cohort-hub/admissions/config"
	"github.com/cohort-hub/admissions/internal/application/command"
	"github.com/cohort-hub/admissions/internal/application/eventhandler"
	"github.com/cohort-hub/admissions/internal/application/query"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/internal/infrastructure/messaging"
	"github.com/cohort-hub/admissions/internal/infrastructure/persistence/postgres"
	"github.com/cohort-hub/admissions/internal/infrastructure/persistence/redis"
	httpserver "github.com/cohort-hub/admissions/internal/interface/http"
	"github.com/cohort-hub/admissions/internal/interface/http/handlers"
	"github.com/cohort-hub/admissions/pkg/logger"
	"github.com/cohort-hub/admissions/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting admissions API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// Логгер прикладного слоя пишет JSON-строки с полями запроса.
	appLog := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("service", cfg.App.Name), logger.Component("api"))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	poolOpts := postgres.DefaultPoolOptions()
	poolOpts.MaxConns = int32(cfg.Database.MaxConns)
	poolOpts.MinConns = int32(cfg.Database.MinConns)
	poolOpts.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolOpts.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	dbConn, err := postgres.NewConnection(ctx, cfg.Database.URL, poolOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		status, err := migrator.Status(ctx)
		if err != nil {
			log.Warn("failed to read migration status", "error", err)
		} else {
			applied := 0
			for _, m := range status {
				if m.IsApplied {
					applied++
				}
			}
			log.Info("migrations completed", "applied", applied, "total", len(status))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПОДКЛЮЧЕНИЕ К REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache   *redis.Cache
		rankingCache ranking.Cache
	)
	if !cfg.Redis.Disabled && cfg.Features.Enabled(config.FeatureLeaderboardCache) {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// Redis не критичен: рейтинг просто считается без кеша.
			log.Warn("failed to connect to Redis, continuing without cache", "error", err)
			redisCache = nil
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = redisCache.Close()
			}()
			rankingCache = redis.NewTopRatedCache(redisCache)
			log.Info("Redis connection established")
		}
	} else {
		log.Info("top-rated cache disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	ratingRepo := postgres.NewRatingRepository(dbConn)
	rankingRepo := postgres.NewRankingRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS И ПОДПИСЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger:        log.With("component", "event_bus"),
		EnableMetrics: true,
	})
	defer func() {
		if m := eventBus.Metrics(); m != nil {
			log.Info("event bus totals",
				"ratings", m.Published(shared.EventRatingSubmitted),
				"offers", m.Published(shared.EventAdmissionOffered),
				"accepted", m.Published(shared.EventOfferAccepted),
				"rejected", m.Published(shared.EventStudentRejected),
				"handler_failures", m.Failures(),
			)
		}
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	if err := eventhandler.Register(
		eventBus,
		eventhandler.NewRankingInvalidator(rankingCache, log),
		eventhandler.NewAuditLogger(log),
	); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	deps := command.Deps{
		Clock:  timeutil.SystemClock{},
		Events: eventBus,
		Logger: appLog,
	}

	nextUnrated := query.NewNextUnratedStudentHandler(studentRepo, appLog)
	submitRating := command.NewSubmitRatingHandler(ratingRepo, deps)
	topRated := query.NewTopRatedHandler(rankingRepo, query.TopRatedOptions{
		Cache:    rankingCache,
		CacheTTL: cfg.Admission.TopRatedCacheTTL,
		MaxTake:  cfg.Admission.MaxTake,
		Logger:   appLog,
	})
	decisions := command.NewAdmissionDecisionHandler(studentRepo, deps)
	acceptOffer := command.NewAcceptOfferHandler(
		studentRepo,
		student.NewOfferPolicy(cfg.Admission.OfferValidity),
		deps,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. АУТЕНТИФИКАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	auth, err := handlers.NewJWTAuth(handlers.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return fmt.Errorf("failed to configure authentication: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.SetTimeout(cfg.Observability.HealthCheckTimeout)
	health.AddCheck("postgres", handlers.NewPingCheck(dbConn))
	if redisCache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	// Частичный rollout экспорта распределяет администраторов по username.
	exportGate := func(c access.Caller) bool {
		return cfg.Features.IsEnabled(config.FeatureXLSXExport, &config.FeatureContext{Username: c.Identity()})
	}

	httpServer := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		NextUnrated:   nextUnrated,
		SubmitRating:  submitRating,
		TopRated:      topRated,
		ExportGate:    exportGate,
		Decisions:     decisions,
		AcceptOffer:   acceptOffer,
		Auth:          auth,
		Logger:        appLog,
		HealthChecker: health,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()

	log.Info("admissions API is running", "http_address", httpCfg.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("service error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Event bus, Redis и база закроются через defer.
	log.Info("admissions API stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает slog для инфраструктурных логов.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: cfg.IsDevelopment(),
	}

	switch {
	case cfg.App.Debug:
		opts.Level = slog.LevelDebug
	case cfg.Observability.LogLevel == "warn":
		opts.Level = slog.LevelWarn
	case cfg.Observability.LogLevel == "error":
		opts.Level = slog.LevelError
	}

	if cfg.IsProduction() || cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
