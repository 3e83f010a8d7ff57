package handler

import (
	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/middleware"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services сервисы, которые обслуживает HTTP API
type Services struct {
	Webhooks    service.WebhookService
	Clicks      service.ClickTracker
	Conversions service.ConversionService
	Unlocker    service.CreditUnlocker
	Profiles    service.ProfileService
	Campaigns   service.CampaignService
	Invites     service.InviteService
}

type RouterConfig struct {
	// SecureCookie выставляет Secure для cookie referral_code
	SecureCookie bool
	// APIKeys ключи для cron и dashboard эндпоинтов, пустая карта отключает проверку
	APIKeys map[string]string
	Health  map[string]Pinger
}

// Limiters ограничители периметра, nil отключает соответствующий лимит
type Limiters struct {
	// Edge лимит по IP для пикселей, редиректа и dashboard
	Edge *middleware.RateLimiter
	// Webhook лимит по client_id, лимит кампании в час считается отдельно по журналу
	Webhook *middleware.RateLimiter
}

func (l Limiters) edge() gin.HandlerFunc {
	if l.Edge == nil {
		return passThrough
	}
	return l.Edge.Middleware()
}

func (l Limiters) webhook() gin.HandlerFunc {
	if l.Webhook == nil {
		return passThrough
	}
	return l.Webhook.MiddlewareWithKey(func(c *gin.Context) string {
		return c.Param("client_id")
	})
}

func passThrough(c *gin.Context) {
	c.Next()
}

func NewRouter(
	svc Services,
	cfg RouterConfig,
	limiters Limiters,
	m *metrics.Metrics,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(m.GinMiddleware())

	edge := limiters.edge()

	webhookHandler := NewWebhookHandler(svc.Webhooks, logger)
	clickHandler := NewClickHandler(svc.Clicks, cfg.SecureCookie, logger)
	conversionHandler := NewConversionHandler(svc.Conversions, logger)
	creditHandler := NewCreditHandler(svc.Unlocker, logger)
	profileHandler := NewProfileHandler(svc.Profiles, logger)
	campaignHandler := NewCampaignHandler(svc.Campaigns, svc.Invites, logger)
	healthHandler := NewHealthHandler(cfg.Health)

	apiKey := middleware.APIKeyIfConfigured(cfg.APIKeys)

	// Публичные эндпоинты для внешних платформ и пикселей, CORS открыт
	api := router.Group("/api")
	{
		cors := middleware.OpenCORS("POST, OPTIONS")

		// вебхуки платформ идут с одного IP пачками, поэтому лимит по client_id, а не по IP
		api.OPTIONS("/webhooks/org/:client_id", cors)
		api.POST("/webhooks/org/:client_id", cors, limiters.webhook(), webhookHandler.OrganizationWebhook)

		api.OPTIONS("/conversion", cors)
		api.POST("/conversion", cors, edge, conversionHandler.TrackConversion)

		api.OPTIONS("/track-click", cors)
		api.POST("/track-click", cors, edge, clickHandler.TrackClick)

		// cron
		api.GET("/credits/unlock", edge, apiKey, creditHandler.UnlockCredits)
		api.POST("/credits/unlock", edge, apiKey, creditHandler.UnlockCredits)

		profile := api.Group("/profile", edge, apiKey, middleware.RequireOrganizer())
		profile.GET("", profileHandler.GetProfile)
		profile.PUT("", profileHandler.SaveProfile)
	}

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.HealthCheck)

		campaigns := v1.Group("/campaigns", edge, apiKey, middleware.RequireOrganizer())
		campaigns.POST("", campaignHandler.CreateCampaign)
		campaigns.GET("/:id", campaignHandler.GetCampaign)
		campaigns.POST("/:id/activate", campaignHandler.ActivateCampaign)
		campaigns.POST("/:id/archive", campaignHandler.ArchiveCampaign)
		campaigns.POST("/:id/unarchive", campaignHandler.UnarchiveCampaign)
		campaigns.POST("/:id/send", campaignHandler.SendInvites)
	}

	// Реферальный редирект без API key
	router.GET("/r/:code", edge, clickHandler.Redirect)

	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router
}
