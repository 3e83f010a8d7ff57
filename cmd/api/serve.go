package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/referral-service/internal/email"
	"github.com/SergeiKhy/referral-service/internal/handler"
	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/middleware"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and credit unlock scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply database migrations on startup")

	return cmd
}

func runServe(skipMigrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.App)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if !skipMigrate {
		if err := repository.Migrate(cfg.DB); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	m := metrics.New()

	// Инициализация репозиториев
	organizerRepo := repository.NewOrganizerRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	contactRepo := repository.NewContactRepository(db)
	clickRepo := repository.NewClickRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	queue := repository.NewNotificationQueue(redis)

	var linkCache repository.LinkCache
	if cfg.Cache.LinkTTL > 0 {
		linkCache = repository.NewLinkCache(redis)
	}

	var sender email.Sender
	if cfg.SMTP.Enabled() {
		sender = email.NewSMTPSender(cfg.SMTP, logger)
		logger.Info("SMTP notifications enabled", zap.String("host", cfg.SMTP.Host))
	} else {
		sender = email.NewLogSender(logger)
		logger.Warn("SMTP_HOST is not set, notifications will only be logged")
	}

	// Воркеры уведомлений рефереров
	notifier := service.NewNotifier(queue, conversionRepo, campaignRepo, contactRepo, sender, m, logger)
	notifier.Start()
	defer notifier.Stop()

	guard := service.NewWebhookGuard(webhookLogRepo, logger)
	resolver := service.NewCampaignResolver(organizerRepo, campaignRepo, m, logger)
	attribution := service.NewAttributionService(contactRepo, conversionRepo, creditRepo, guard, cfg.App.PublicBaseURL, m, logger)
	unlocker := service.NewCreditUnlocker(campaignRepo, creditRepo, m, logger)

	svc := handler.Services{
		Webhooks:    service.NewWebhookService(resolver, attribution, service.NewWebhookLogger(webhookLogRepo, logger), m, logger),
		Clicks:      service.NewClickTracker(contactRepo, clickRepo, linkCache, cfg.Cache.LinkTTL, cfg.App.PublicBaseURL, m, logger),
		Conversions: service.NewConversionService(contactRepo, conversionRepo, creditRepo, notifier, m, logger),
		Unlocker:    unlocker,
		Profiles:    service.NewProfileService(organizerRepo, logger),
		Campaigns:   service.NewCampaignService(campaignRepo, organizerRepo, logger),
		Invites:     service.NewInviteService(campaignRepo, contactRepo, sender, cfg.App.PublicBaseURL, m, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Credits.UnlockInterval > 0 {
		go unlocker.Run(ctx, cfg.Credits.UnlockInterval)
		logger.Info("Credit unlock scheduler started", zap.Duration("interval", cfg.Credits.UnlockInterval))
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	limiters := handler.Limiters{Edge: rateLimiter}
	if cfg.RateLimit.WebhookRPS > 0 {
		webhookLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.WebhookRPS,
			BurstSize:         cfg.RateLimit.WebhookBurst,
			CleanupInterval:   time.Minute,
		})
		defer webhookLimiter.Stop()
		limiters.Webhook = webhookLimiter
	}

	if len(cfg.Auth.APIKeys) > 0 {
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("API_KEYS is not set, credit and dashboard endpoints are open")
	}

	router := handler.NewRouter(svc, handler.RouterConfig{
		SecureCookie: cfg.App.IsProduction(),
		APIKeys:      cfg.Auth.APIKeys,
		Health: map[string]handler.Pinger{
			"postgres": db,
			"redis":    redis,
		},
	}, limiters, m, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful Shutdown
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}

