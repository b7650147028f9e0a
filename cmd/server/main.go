package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai/mock"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai/openai"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/billing"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/handler"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/jobs"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/middleware"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/report"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
)

// sessionCleanupSchedule runs the expired-session sweep hourly.
const sessionCleanupSchedule = "@every 1h"

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, "server")

	// Initialize database connection pool
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if version, err := internal.MigrationVersion(db); err == nil {
		logger.Info("Database ready", "schema_version", version)
	}

	store := repository.NewStore(db)

	// ==========================================================================
	// External collaborators
	// ==========================================================================

	blobs, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		storage.SupabaseConfig{
			ProjectRef:      cfg.SupabaseProjectRef,
			Region:          cfg.SupabaseS3Region,
			AccessKeyID:     cfg.SupabaseS3AccessKeyID,
			SecretAccessKey: cfg.SupabaseS3SecretKey,
			Bucket:          cfg.SupabaseBucket,
			PublicURL:       cfg.SupabasePublicURL,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	gateway, err := billing.New(billing.Config{
		Provider:            cfg.PaymentProvider,
		TossSecretKey:       cfg.TossSecretKey,
		TossAPIBaseURL:      cfg.TossAPIBaseURL,
		StripeSecretKey:     cfg.StripeSecretKey,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return fmt.Errorf("payment gateway initialization failed: %w", err)
	}
	logger.Info("Payment gateway ready", "provider", gateway.Name())

	aiProvider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("AI provider initialization failed: %w", err)
	}

	notifier := notify.NewAsync(notify.New(notify.TelegramConfig{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
	}), logger)
	defer notifier.Wait()

	// ==========================================================================
	// Services
	// ==========================================================================

	userService := service.NewUserService(store, notifier, service.UserServiceConfig{
		SessionDuration: cfg.SessionDuration,
		AdminEmails:     cfg.AdminEmails,
	}, logger)
	policyService := service.NewPolicyService(store, cfg.Location(), logger)
	couponService := service.NewCouponService(store, notifier, logger)
	subscriptionService := service.NewSubscriptionService(store, notifier, logger)
	billingService := service.NewBillingService(store, gateway, notifier, logger)
	projectService := service.NewProjectService(store, policyService, blobs, notifier, cfg.MaxUploadSize, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		bgWorker, err = worker.New(store, worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPollInterval,
			JobTimeout:   cfg.WorkerJobTimeout,
		}.WithDefaults(), logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		var pdfOpts []report.PDFOption
		if cfg.ReportFontPath != "" {
			pdfOpts = append(pdfOpts, report.WithUTF8Font(cfg.ReportFontPath))
		}

		bgWorker.Register(jobs.NewAnalyzeProjectHandler(store, aiProvider, blobs, logger))
		bgWorker.Register(jobs.NewGeneratePresentationHandler(store, aiProvider, cfg.PresentationSlides, logger))
		bgWorker.Register(jobs.NewGenerateReportHandler(store, blobs, report.NewPDFGenerator(pdfOpts...), logger))
		bgWorker.Start(ctx)
	}

	// Housekeeping
	housekeeping := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := housekeeping.AddFunc(sessionCleanupSchedule, func() {
		n, err := userService.DeleteExpiredSessions(context.Background())
		if err != nil {
			logger.Error("expired session cleanup failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("expired sessions removed", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("housekeeping schedule failed: %w", err)
	}
	housekeeping.Start()

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuth := middleware.NewBasicAuthMiddleware("metrics", cfg.MetricsUsername, cfg.MetricsPassword)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisClient.Close()
		logger.Info("Rate limiting backed by Redis")
	}
	newLimiter := func(limit int, prefix string) middleware.Limiter {
		if redisClient != nil {
			return middleware.NewRedisLimiter(redisClient, limit, cfg.RateLimitWindow, prefix)
		}
		return middleware.NewMemoryLimiter(limit, cfg.RateLimitWindow)
	}
	loginLimiter := newLimiter(cfg.LoginRateLimit, "login")
	couponLimiter := newLimiter(cfg.CouponRateLimit, "coupon")
	for _, l := range []middleware.Limiter{loginLimiter, couponLimiter} {
		if m, ok := l.(*middleware.MemoryLimiter); ok {
			defer m.Close()
		}
	}
	loginLimit := middleware.NewRateLimitMiddleware(loginLimiter, "login", middleware.ByIP, logger)
	couponLimit := middleware.NewRateLimitMiddleware(couponLimiter, "coupon_redeem", middleware.ByUserOrIP, logger)

	// ==========================================================================
	// Handlers and routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewHealthHandler(db, redisClient, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))
	if !metricsAuth.Enabled() {
		logger.Warn("metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	if local, ok := blobs.(*storage.LocalStorage); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", local.Handler()))
	}

	requireUser := authMw.RequireUser
	requireAdmin := authMw.RequireAdmin

	handler.NewAuthHandler(userService, logger, isSecure).RegisterRoutes(mux, requireUser, loginLimit.Limit)
	handler.NewSubscriptionHandler(subscriptionService, policyService, logger).RegisterRoutes(mux, requireUser)
	handler.NewCouponHandler(couponService, logger).RegisterRoutes(mux, requireUser, requireAdmin, couponLimit.Limit)
	handler.NewBillingHandler(billingService, cfg.CronSecret, logger).RegisterRoutes(mux, requireUser, requireAdmin)
	handler.NewWebhookHandler(billingService, logger).RegisterRoutes(mux)
	handler.NewAdminHandler(policyService, logger).RegisterRoutes(mux, requireAdmin)
	handler.NewProjectHandler(projectService, cfg.MaxUploadSize, logger).RegisterRoutes(mux, requireUser)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Outermost first: metrics and logging see every request, WithUser
	// populates the session for all routes including the scheduler-facing
	// charge endpoint.
	root := middleware.Stack(
		metrics.Middleware,
		loggingMw.Handler,
		securityMw.Handler,
		authMw.WithUser,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	<-housekeeping.Stop().Done()
	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	providerCfg := ai.ProviderConfig{
		MaxRetries:     cfg.AIMaxRetries,
		RetryBaseDelay: cfg.AIRetryBaseDelay,
		RequestTimeout: cfg.AIRequestTimeout,
	}
	switch cfg.AIProvider {
	case "openai":
		p, err := openai.New(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			ProviderConfig: providerCfg,
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		logger.Warn("using mock AI provider")
		return mock.New(logger), nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
