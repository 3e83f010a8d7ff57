package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сообщения ответа вебхука, они же пишутся в журнал
const (
	MsgLinkGenerated     = "Referral link generated successfully"
	MsgLinkExisting      = "Contact already exists, returned existing link"
	MsgCampaignNotActive = "Campaign not active"
	MsgRateLimited       = "Rate limit exceeded"
	MsgWebhookFailed     = "Failed to process webhook"
)

// WebhookRequest входящий вебхук организатора вместе с метаданными для журнала
type WebhookRequest struct {
	ClientID  string
	Payload   models.PurchasePayload
	RawBody   json.RawMessage
	RequestIP *string
	Headers   map[string]string
}

// WebhookService принимает события покупок от внешних билетных платформ
type WebhookService interface {
	HandleOrganizationWebhook(ctx context.Context, req *WebhookRequest) (*models.PurchaseResult, error)
}

type webhookService struct {
	resolver    CampaignResolver
	attribution AttributionService
	webhookLog  WebhookLogger
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewWebhookService(
	resolver CampaignResolver,
	attribution AttributionService,
	webhookLog WebhookLogger,
	m *metrics.Metrics,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		resolver:    resolver,
		attribution: attribution,
		webhookLog:  webhookLog,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *webhookService) HandleOrganizationWebhook(ctx context.Context, req *WebhookRequest) (result *models.PurchaseResult, err error) {
	start := s.now()
	payload := &req.Payload
	payload.Normalize()

	var campaignID uuid.UUID

	// журнал пишется для любого исхода, где кампания уже известна
	defer func() {
		status, message := WebhookOutcome(result, err)
		s.metrics.ObserveWebhook(status)

		if err != nil && status >= http.StatusInternalServerError {
			s.logger.Error("Organization webhook failed",
				zap.String("client_id", req.ClientID),
				zap.String("external_event_id", payload.ExternalEventID),
				zap.Error(err),
			)
		}

		if campaignID == uuid.Nil {
			return
		}

		entry := &models.WebhookLog{
			CampaignID:       campaignID,
			WebhookType:      models.WebhookTypeOrganization,
			RequestIP:        req.RequestIP,
			RequestHeaders:   req.Headers,
			RequestPayload:   req.RawBody,
			ResponseStatus:   status,
			ResponseMessage:  message,
			ProcessingTimeMs: s.now().Sub(start).Milliseconds(),
		}
		if err != nil {
			errMsg := err.Error()
			entry.ErrorMessage = &errMsg
		}
		s.webhookLog.Log(ctx, entry)
	}()

	if field := payload.MissingField(); field != "" {
		return nil, fmt.Errorf("%w: %s is required", ErrMissingField, field)
	}
	if !validEmail(payload.CustomerEmail) {
		return nil, fmt.Errorf("%w: customer_email", ErrInvalidEmail)
	}

	campaign, err := s.resolver.Resolve(ctx, req.ClientID, payload.ExternalEventID, payload.TicketURL)
	if err != nil {
		return nil, err
	}
	campaignID = campaign.ID

	return s.attribution.ProcessPurchase(ctx, campaign, payload)
}

// WebhookOutcome HTTP статус и сообщение ответа для результата обработки
func WebhookOutcome(result *models.PurchaseResult, err error) (int, string) {
	if err == nil {
		if result != nil && !result.Created {
			return http.StatusOK, MsgLinkExisting
		}
		return http.StatusCreated, MsgLinkGenerated
	}

	status, _ := Classify(err)

	var rateErr *RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return status, MsgRateLimited
	case errors.Is(err, ErrCampaignNotActive):
		return status, MsgCampaignNotActive
	case status >= http.StatusInternalServerError:
		return status, MsgWebhookFailed
	default:
		return status, err.Error()
	}
}
