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

// Сообщения ответа пикселя конверсии
const (
	MsgConversionTracked   = "Conversion tracked"
	MsgConversionDuplicate = "Conversion already tracked"
	MsgBuyerNotNew         = "Buyer already purchased for this campaign"
	MsgSelfReferral        = "Self-referral is not allowed"
)

// ConversionService принимает конверсии с пикселя на странице оплаты
type ConversionService interface {
	Track(ctx context.Context, input *models.ConversionInput) (*models.ConversionOutcome, error)
}

type conversionService struct {
	contactRepo    repository.ContactRepository
	conversionRepo repository.ConversionRepository
	creditRepo     repository.CreditRepository
	publisher      NotificationPublisher
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

func NewConversionService(
	contactRepo repository.ContactRepository,
	conversionRepo repository.ConversionRepository,
	creditRepo repository.CreditRepository,
	publisher NotificationPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) ConversionService {
	return &conversionService{
		contactRepo:    contactRepo,
		conversionRepo: conversionRepo,
		creditRepo:     creditRepo,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *conversionService) Track(ctx context.Context, in *models.ConversionInput) (*models.ConversionOutcome, error) {
	code := strings.ToUpper(strings.TrimSpace(in.RefCode))
	if code == "" {
		return nil, ErrMissingRefCode
	}
	orderID := strings.TrimSpace(in.OrderID)
	buyerEmail := strings.ToLower(strings.TrimSpace(in.BuyerEmail))

	cc, err := s.contactRepo.GetByCodeWithCampaign(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, ErrInvalidRefCode
		}
		return nil, processingError("lookup referrer", err)
	}
	campaign := &cc.Campaign
	referrer := &cc.Contact

	// отсутствующий email покупателя приходит как "Not Available"
	checkBuyer := buyerEmail != "" && !strings.EqualFold(buyerEmail, models.NotAvailable)

	if checkBuyer && strings.EqualFold(referrer.Email, buyerEmail) {
		s.logger.Warn("Self-referral rejected",
			zap.String("referral_code", code),
			zap.String("campaign_id", campaign.ID.String()),
		)
		return s.outcome(models.ConversionSelfReferral, nil), nil
	}

	if orderID != "" {
		existing, err := s.conversionRepo.GetByOrderID(ctx, campaign.ID, orderID)
		if err == nil {
			return s.outcome(models.ConversionDuplicate, &existing.ID), nil
		}
		if !errors.Is(err, repository.ErrConversionNotFound) {
			return nil, processingError("lookup conversion", err)
		}
	}

	if checkBuyer {
		existing, err := s.conversionRepo.GetByBuyerEmail(ctx, campaign.ID, buyerEmail)
		if err == nil {
			return s.outcome(models.ConversionNotNew, &existing.ID), nil
		}
		if !errors.Is(err, repository.ErrConversionNotFound) {
			return nil, processingError("lookup buyer", err)
		}
	}

	commission := CalculateCommission(campaign.CommissionType, campaign.CommissionValue, in.Amount)

	conversion := &models.Conversion{
		ID:                uuid.New(),
		CampaignID:        campaign.ID,
		ReferrerContactID: referrer.ID,
		ReferralCode:      referrer.UniqueCode,
		OrderID:           optional(orderID),
		Amount:            nullDecimal(in.Amount),
		CommissionType:    campaign.CommissionType,
		CommissionValue:   campaign.CommissionValue,
		CommissionAmount:  commission,
	}
	if checkBuyer {
		conversion.BuyerEmail = &buyerEmail
	}

	if err := s.conversionRepo.Create(ctx, conversion); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateOrder):
			return s.outcome(models.ConversionDuplicate, nil), nil
		case errors.Is(err, repository.ErrDuplicateBuyer):
			return s.outcome(models.ConversionNotNew, nil), nil
		}
		return nil, processingError("create conversion", err)
	}

	credit := newCredit(campaign, conversion, s.now())
	if err := s.creditRepo.Create(ctx, credit); err != nil {
		return nil, processingError("create credit", err)
	}

	job := &models.NotificationJob{
		ConversionID:      conversion.ID,
		ReferrerContactID: referrer.ID,
		CampaignID:        campaign.ID,
		EnqueuedAt:        s.now(),
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue referrer notification",
			zap.String("conversion_id", conversion.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Conversion tracked",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("referral_code", code),
		zap.String("commission", commission.StringFixed(2)),
	)

	return s.outcome(models.ConversionSuccess, &conversion.ID), nil
}

func (s *conversionService) outcome(status models.ConversionStatus, id *uuid.UUID) *models.ConversionOutcome {
	s.metrics.IncConversion("pixel", string(status))

	out := &models.ConversionOutcome{Status: status, ConversionID: id}
	switch status {
	case models.ConversionSuccess:
		out.Message = MsgConversionTracked
	case models.ConversionDuplicate:
		out.Message = MsgConversionDuplicate
	case models.ConversionNotNew:
		out.Message = MsgBuyerNotNew
	case models.ConversionSelfReferral:
		out.Message = MsgSelfReferral
	}
	return out
}
