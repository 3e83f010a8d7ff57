package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttributionService обрабатывает покупку: контакт покупателя,
// атрибуция реферера, комиссия и кредит
type AttributionService interface {
	ProcessPurchase(ctx context.Context, campaign *models.Campaign, payload *models.PurchasePayload) (*models.PurchaseResult, error)
}

type attributionService struct {
	contactRepo    repository.ContactRepository
	conversionRepo repository.ConversionRepository
	creditRepo     repository.CreditRepository
	guard          WebhookGuard
	baseURL        string
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
	newCode        CodeGenerator
}

func NewAttributionService(
	contactRepo repository.ContactRepository,
	conversionRepo repository.ConversionRepository,
	creditRepo repository.CreditRepository,
	guard WebhookGuard,
	baseURL string,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttributionService {
	return &attributionService{
		contactRepo:    contactRepo,
		conversionRepo: conversionRepo,
		creditRepo:     creditRepo,
		guard:          guard,
		baseURL:        baseURL,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
		newCode:        GenerateCode,
	}
}

func (s *attributionService) ProcessPurchase(ctx context.Context, campaign *models.Campaign, p *models.PurchasePayload) (*models.PurchaseResult, error) {
	// 1. Кампания должна быть активна до любой записи
	if !campaign.IsActive() {
		return nil, ErrCampaignNotActive
	}

	// 2. Лимит запросов и эвристики злоупотреблений
	limit, err := s.guard.CheckRateLimit(ctx, campaign)
	if err != nil {
		return nil, processingError("check rate limit", err)
	}
	if !limit.Allowed {
		s.metrics.IncRateLimited()
		return nil, &RateLimitError{Limit: limit.Limit, Current: limit.Current, ResetAt: limit.ResetAt}
	}

	if suspicion := s.guard.DetectSuspiciousActivity(ctx, campaign.ID); suspicion.Suspicious {
		s.metrics.IncSuspicious()
		s.logger.Warn("Suspicious webhook activity",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("reason", suspicion.Reason),
		)
	}

	// 3. Идемпотентное создание контакта покупателя
	contact, created, err := s.resolveContact(ctx, campaign, p)
	if err != nil {
		return nil, err
	}

	result := &models.PurchaseResult{
		ReferralLink: contact.ShortLink,
		ContactID:    contact.ID,
		TrackingCode: contact.UniqueCode,
		Created:      created,
	}

	// повторная доставка того же покупателя: атрибуция уже выполнялась
	if !created {
		return result, nil
	}

	// 4-5. Атрибуция реферера и выдача кредита
	if p.ReferralCode != "" {
		referral, err := s.attribute(ctx, campaign, contact, p)
		if err != nil {
			return nil, err
		}
		result.Referral = referral
	}

	return result, nil
}

// resolveContact возвращает контакт покупателя и признак того, что он создан сейчас
func (s *attributionService) resolveContact(ctx context.Context, campaign *models.Campaign, p *models.PurchasePayload) (*models.Contact, bool, error) {
	existing, err := s.contactRepo.GetByEmail(ctx, campaign.ID, p.CustomerEmail)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrContactNotFound) {
		return nil, false, processingError("lookup contact", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, processingError("generate code", err)
		}

		contact := &models.Contact{
			ID:             uuid.New(),
			CampaignID:     campaign.ID,
			Name:           p.DisplayName(),
			FirstName:      optional(p.CustomerFirstName),
			LastName:       optional(p.CustomerLastName),
			Email:          p.CustomerEmail,
			Phone:          optional(p.CustomerPhone),
			UniqueCode:     code,
			ShortLink:      shortLink(s.baseURL, code),
			OrderID:        optional(p.OrderID),
			DestinationURL: contactDestination(p.TicketURL),
			Source:         models.SourceWebhookOrganization,
		}

		err = s.contactRepo.Create(ctx, contact)
		switch {
		case err == nil:
			return contact, true, nil

		case errors.Is(err, repository.ErrCodeExists):
			s.logger.Debug("Referral code collision, regenerating",
				zap.String("campaign_id", campaign.ID.String()),
				zap.Int("attempt", attempt),
			)
			continue

		case errors.Is(err, repository.ErrDuplicateEmail):
			// параллельная доставка успела создать контакт
			existing, err := s.contactRepo.GetByEmail(ctx, campaign.ID, p.CustomerEmail)
			if err != nil {
				return nil, false, processingError("re-fetch contact", err)
			}
			return existing, false, nil

		default:
			return nil, false, processingError("create contact", err)
		}
	}

	return nil, false, processingError("create contact", errors.New("could not allocate a unique referral code"))
}

// attribute создаёт конверсию и кредит для реферера по referral_code
func (s *attributionService) attribute(ctx context.Context, campaign *models.Campaign, buyer *models.Contact, p *models.PurchasePayload) (*models.ReferralOutcome, error) {
	referrer, err := s.contactRepo.GetByCode(ctx, campaign.ID, p.ReferralCode)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			s.logger.Warn("Referral code not found for campaign",
				zap.String("referral_code", p.ReferralCode),
				zap.String("campaign_id", campaign.ID.String()),
			)
			s.metrics.IncConversion("webhook", string(models.ReferralUnknownCode))
			return &models.ReferralOutcome{Status: models.ReferralUnknownCode}, nil
		}
		return nil, processingError("lookup referrer", err)
	}

	if referrer.ID == buyer.ID || strings.EqualFold(referrer.Email, p.CustomerEmail) {
		s.logger.Warn("Self-referral rejected",
			zap.String("referral_code", p.ReferralCode),
			zap.String("campaign_id", campaign.ID.String()),
		)
		s.metrics.IncConversion("webhook", string(models.ReferralSelfRejected))
		return &models.ReferralOutcome{Status: models.ReferralSelfRejected}, nil
	}

	if p.OrderID != "" {
		existing, err := s.conversionRepo.GetByOrderID(ctx, campaign.ID, p.OrderID)
		if err == nil {
			return s.duplicateOutcome(campaign, p, &existing.ID), nil
		}
		if !errors.Is(err, repository.ErrConversionNotFound) {
			return nil, processingError("lookup conversion", err)
		}
	}

	commission := CalculateCommission(campaign.CommissionType, campaign.CommissionValue, p.Amount)

	conversion := &models.Conversion{
		ID:                        uuid.New(),
		CampaignID:                campaign.ID,
		ReferrerContactID:         referrer.ID,
		ReferralCode:              p.ReferralCode,
		ReferredCustomerEmail:     optional(p.CustomerEmail),
		ReferredCustomerFirstName: optional(p.CustomerFirstName),
		ReferredCustomerLastName:  optional(p.CustomerLastName),
		ReferredCustomerPhone:     optional(p.CustomerPhone),
		OrderID:                   optional(p.OrderID),
		Amount:                    nullDecimal(p.Amount),
		CommissionType:            campaign.CommissionType,
		CommissionValue:           campaign.CommissionValue,
		CommissionAmount:          commission,
	}

	if err := s.conversionRepo.Create(ctx, conversion); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) || errors.Is(err, repository.ErrDuplicateBuyer) {
			return s.duplicateOutcome(campaign, p, nil), nil
		}
		return nil, processingError("create conversion", err)
	}

	credit := newCredit(campaign, conversion, s.now())
	if err := s.creditRepo.Create(ctx, credit); err != nil {
		return nil, processingError("create credit", err)
	}

	s.metrics.IncConversion("webhook", string(models.ReferralAttributed))
	s.logger.Info("Referral credit awarded",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("referrer_contact_id", referrer.ID.String()),
		zap.String("commission", commission.StringFixed(2)),
		zap.String("credit_status", string(credit.Status)),
	)

	return &models.ReferralOutcome{
		Status:           models.ReferralAttributed,
		ConversionID:     &conversion.ID,
		CommissionAmount: &commission,
		CreditStatus:     credit.Status,
	}, nil
}

func (s *attributionService) duplicateOutcome(campaign *models.Campaign, p *models.PurchasePayload, conversionID *uuid.UUID) *models.ReferralOutcome {
	s.logger.Info("Conversion for order already recorded",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("order_id", p.OrderID),
	)
	s.metrics.IncConversion("webhook", string(models.ReferralDuplicate))
	return &models.ReferralOutcome{Status: models.ReferralDuplicate, ConversionID: conversionID}
}

// contactDestination сохраняет ticket_url покупателя, только если это абсолютный URL
func contactDestination(ticketURL string) *string {
	if !validateAbsoluteURL(ticketURL) {
		return nil
	}
	return &ticketURL
}
