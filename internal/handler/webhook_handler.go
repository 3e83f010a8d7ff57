package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loggedHeaders заголовки запроса, которые сохраняются в журнал вебхуков
var loggedHeaders = []string{"content-type", "user-agent", "x-forwarded-for", "x-real-ip", "referer"}

type WebhookHandler struct {
	webhooks service.WebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		logger:   logger,
	}
}

type WebhookResponse struct {
	Success      bool                    `json:"success"`
	ReferralLink string                  `json:"referral_link"`
	ContactID    uuid.UUID               `json:"contact_id"`
	TrackingCode string                  `json:"tracking_code"`
	Message      string                  `json:"message"`
	Referral     *models.ReferralOutcome `json:"referral,omitempty"`
}

type RateLimitResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Limit   int    `json:"limit"`
	Current int64  `json:"current"`
	ResetAt string `json:"reset_at"`
}

// OrganizationWebhook godoc
// @Summary Receive a purchase event from a ticketing platform
// @Tags webhooks
// @Accept json
// @Produce json
// @Param client_id path string true "Organizer client id"
// @Success 201 {object} WebhookResponse
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} RateLimitResponse
// @Router /api/webhooks/org/{client_id} [post]
func (h *WebhookHandler) OrganizationWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "invalid_payload", "Failed to read request body")
		return
	}

	var payload models.PurchasePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn("Invalid webhook payload", zap.String("client_id", c.Param("client_id")), zap.Error(err))
		badRequest(c, "invalid_payload", "Invalid JSON payload")
		return
	}

	req := &service.WebhookRequest{
		ClientID:  c.Param("client_id"),
		Payload:   payload,
		RawBody:   raw,
		RequestIP: requestIP(c.Request),
		Headers:   requestHeaders(c.Request),
	}

	result, err := h.webhooks.HandleOrganizationWebhook(c.Request.Context(), req)
	status, message := service.WebhookOutcome(result, err)

	if err != nil {
		var rateErr *service.RateLimitError
		if errors.As(err, &rateErr) {
			writeRateLimited(c, rateErr, message)
			return
		}

		_, code := service.Classify(err)
		c.JSON(status, ErrorResponse{Error: code, Message: message})
		return
	}

	c.JSON(status, WebhookResponse{
		Success:      true,
		ReferralLink: result.ReferralLink,
		ContactID:    result.ContactID,
		TrackingCode: result.TrackingCode,
		Message:      message,
		Referral:     result.Referral,
	})
}

func writeRateLimited(c *gin.Context, rateErr *service.RateLimitError, message string) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(rateErr.Remaining(), 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(rateErr.ResetAt.Unix(), 10))

	c.JSON(http.StatusTooManyRequests, RateLimitResponse{
		Error:   "rate_limit_exceeded",
		Message: message,
		Limit:   rateErr.Limit,
		Current: rateErr.Current,
		ResetAt: rateErr.ResetAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// requestIP первый адрес из X-Forwarded-For, затем X-Real-IP
func requestIP(r *http.Request) *string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip != "" {
			return &ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return &ip
	}
	return nil
}

func requestHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(loggedHeaders))
	for _, name := range loggedHeaders {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}
	return headers
}
