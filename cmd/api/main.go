// Package main is the entrypoint for the Moodmeter server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/moodmeter/moodmeter/internal/cache"
	"github.com/moodmeter/moodmeter/internal/classifier"
	"github.com/moodmeter/moodmeter/internal/config"
	"github.com/moodmeter/moodmeter/internal/handler"
	"github.com/moodmeter/moodmeter/internal/ledger"
	"github.com/moodmeter/moodmeter/internal/metrics"
	"github.com/moodmeter/moodmeter/internal/repository"
	"github.com/moodmeter/moodmeter/internal/server"
	"github.com/moodmeter/moodmeter/internal/service"
	"github.com/moodmeter/moodmeter/migrations"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.DBAutoMigrate {
		version, err := repo.Migrate(ctx, migrations.FS)
		if err != nil {
			logger.Error("failed to apply migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			os.Exit(1)
		}
		logger.Info("migrations applied", "schema_version", version)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// A classifier that fails to load leaves the server up; analyses answer
	// 503 and /readyz reports the failure.
	sentiment := classifier.Load(ctx, classifier.Config{
		Driver:      cfg.ClassifierDriver,
		URL:         cfg.ClassifierURL,
		HealthURL:   cfg.ClassifierHealthURL,
		Token:       cfg.ClassifierToken,
		Timeout:     cfg.ClassifierTimeout,
		LoadTimeout: cfg.ClassifierLoadTimeout,
	}, logger)

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	creditLedger := ledger.New(repo, cfg.ReservationTTL, logger, metricsRecorder)
	accountService := service.NewAccountService(repo, cfg.DefaultCredits, metricsRecorder)
	keyService := service.NewKeyService(repo, repo, cacheClient, cfg.APIKeyLimit, logger, metricsRecorder)
	sessionService := service.NewSessionService(cacheClient, accountService, cfg.SessionTTL)
	gateway := service.NewAnalysisGateway(creditLedger, sentiment, cfg.ClassifierTimeout, logger, metricsRecorder)

	pages, err := handler.NewPages(logger)
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:             logger,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SessionCookieName:  cfg.SessionCookieName,
		Keys:               keyService,
		Sessions:           sessionService,
		Health:             handler.NewHealthHandler(repo, cacheClient, sentiment),
		Metrics:            handler.NewMetricsHandler(metricsRecorder),
		Pages:              handler.NewPageHandler(pages),
		Accounts: handler.NewAccountHandler(accountService, sessionService, keyService, pages, handler.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.IsProduction(),
		}, logger),
		Analyze: handler.NewAnalyzeHandler(gateway, pages, logger),
		APIKeys: handler.NewAPIKeyHandler(keyService, logger),
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	sweeper := ledger.NewSweeper(creditLedger, cfg.ReservationSweepInterval, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start reservation sweeper", "error", err)
		os.Exit(1)
	}
	srv.OnShutdown("reservation sweeper", sweeper.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"classifier", sentiment.Driver(),
		"classifier_ready", sentiment.Ready(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
