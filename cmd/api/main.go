package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oncontrol/platform/cmd/mainconfig"
	"github.com/oncontrol/platform/internal/api/router"
	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/backend"
	appconfig "github.com/oncontrol/platform/internal/config"
	"github.com/oncontrol/platform/internal/gateway"
	"github.com/oncontrol/platform/internal/http/handlers"
	httpmiddleware "github.com/oncontrol/platform/internal/http/middleware"
	"github.com/oncontrol/platform/internal/notify"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting oncontrol sync API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"app_id", cfg.AppID,
	)

	if cfg.SessionJWTSecret == "" {
		logger.Error("SESSION_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	client, sqlDB := buildBackend(ctx, cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewSyncMetrics(reg)

	authSvc := auth.NewService(auth.NewRepository(sqlDB), client, cfg.SessionJWTSecret, cfg.SessionTokenTTL, logger)

	gw := gateway.New(client, httpmiddleware.ContextUserSource{}, logger, m)
	if sender := buildEmailSender(ctx, cfg, logger); sender != nil {
		gw.WithAlertNotifier(notify.NewService(sender, client, logger))
	}

	r := router.New(&router.Config{
		Logger:             logger,
		AuthHandler:        handlers.NewAuthHandler(authSvc, logger),
		SyncHandler:        handlers.NewSyncHandler(gw, logger),
		LiveHandler:        handlers.NewLiveHandler(client, logger, m),
		SessionJWTSecret:   cfg.SessionJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the live feed holds connections open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildBackend wires the document store: Postgres for documents and
// credentials, Redis pub/sub for change notifications.
func buildBackend(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*backend.Client, *sql.DB) {
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("ping postgres", "error", err)
		os.Exit(1)
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("open sql db", "error", err)
		os.Exit(1)
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOptions)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("ping redis", "error", err)
		os.Exit(1)
	}

	notifier := backend.NewRedisNotifier(redisClient, nil, logger)
	store := backend.NewDocStore(pool, notifier, logger)
	notifier.SetStore(store)

	return backend.NewClient(store, notifier, cfg.AppID), sqlDB
}

// buildEmailSender picks the configured mail provider, or nil when email
// notifications are disabled.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("load AWS config", "error", err)
			os.Exit(1)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	case "sendgrid":
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}
