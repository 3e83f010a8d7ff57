package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignService ручное управление кампаниями организатора
type CampaignService interface {
	Create(ctx context.Context, input *models.CreateCampaignInput) (*models.Campaign, error)
	Get(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error)
	Activate(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error)
	Archive(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error)
	Unarchive(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error)
}

type campaignService struct {
	campaignRepo  repository.CampaignRepository
	organizerRepo repository.OrganizerRepository
	logger        *zap.Logger
}

func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	organizerRepo repository.OrganizerRepository,
	logger *zap.Logger,
) CampaignService {
	return &campaignService{
		campaignRepo:  campaignRepo,
		organizerRepo: organizerRepo,
		logger:        logger,
	}
}

// Create создаёт кампанию в статусе draft. Незаданные настройки
// комиссии и разблокировки берутся из профиля организатора.
func (s *campaignService) Create(ctx context.Context, in *models.CreateCampaignInput) (*models.Campaign, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrMissingField)
	}
	if !validateAbsoluteURL(in.DestinationURL) {
		return nil, fmt.Errorf("%w: destination_url must be an absolute http(s) URL", ErrInvalidCampaign)
	}

	profile, err := s.organizerRepo.GetByUserID(ctx, in.OrganizerID)
	if err != nil && !errors.Is(err, repository.ErrOrganizerNotFound) {
		return nil, processingError("load organizer", err)
	}
	defaults := profile.Defaults()

	campaign := &models.Campaign{
		ID:               uuid.New(),
		OrganizerID:      in.OrganizerID,
		Name:             name,
		DestinationURL:   in.DestinationURL,
		Status:           models.CampaignStatusDraft,
		CommissionType:   defaults.CommissionType,
		CommissionValue:  defaults.CommissionValue,
		CreditUnlockType: defaults.CreditUnlockType,
		CreditUnlockDays: defaults.CreditUnlockDays,
		EventDate:        in.EventDate,
		EventEndDate:     in.EventEndDate,
		PromotionEndDate: in.PromotionEndDate,
		RateLimitEnabled: true,
		RateLimitPerHour: models.DefaultRateLimitPerHour,
		IntegrationType:  models.IntegrationManual,
		EmailSubject:     in.EmailSubject,
		EmailTemplate:    in.EmailTemplate,
	}
	if in.ExternalEventID != nil {
		if id := strings.TrimSpace(*in.ExternalEventID); id != "" {
			campaign.ExternalEventID = &id
		}
	}
	if in.CommissionType != nil {
		campaign.CommissionType = *in.CommissionType
	}
	if in.CommissionValue != nil {
		campaign.CommissionValue = *in.CommissionValue
	}
	if in.CreditUnlockType != nil {
		campaign.CreditUnlockType = *in.CreditUnlockType
	}
	if in.CreditUnlockDays != nil {
		campaign.CreditUnlockDays = *in.CreditUnlockDays
	}
	if in.RateLimitEnabled != nil {
		campaign.RateLimitEnabled = *in.RateLimitEnabled
	}
	if in.RateLimitPerHour != nil {
		campaign.RateLimitPerHour = *in.RateLimitPerHour
	}

	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		if errors.Is(err, repository.ErrDuplicateMapping) {
			return nil, ErrDuplicateMapping
		}
		return nil, processingError("create campaign", err)
	}

	s.logger.Info("Campaign created",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("organizer_id", campaign.OrganizerID.String()),
	)
	return campaign, nil
}

func validateCampaign(c *models.Campaign) error {
	switch {
	case !c.CommissionType.Valid():
		return fmt.Errorf("%w: unknown commission_type %q", ErrInvalidCampaign, c.CommissionType)
	case c.CommissionValue.IsNegative():
		return fmt.Errorf("%w: commission_value must not be negative", ErrInvalidCampaign)
	case !c.CreditUnlockType.Valid():
		return fmt.Errorf("%w: unknown credit_unlock_type %q", ErrInvalidCampaign, c.CreditUnlockType)
	case c.CreditUnlockType == models.UnlockDelayed && c.CreditUnlockDays <= 0:
		return fmt.Errorf("%w: credit_unlock_days must be positive for delayed unlock", ErrInvalidCampaign)
	case c.CreditUnlockDays < 0:
		return fmt.Errorf("%w: credit_unlock_days must not be negative", ErrInvalidCampaign)
	case c.RateLimitPerHour <= 0:
		return fmt.Errorf("%w: rate_limit_per_hour must be positive", ErrInvalidCampaign)
	case c.EventDate != nil && c.EventEndDate != nil && c.EventEndDate.Before(*c.EventDate):
		return fmt.Errorf("%w: event_end_date is before event_date", ErrInvalidCampaign)
	}
	return nil
}

// Get возвращает кампанию, только если она принадлежит организатору
func (s *campaignService) Get(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, processingError("get campaign", err)
	}
	if campaign.OrganizerID != organizerID {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

func (s *campaignService) Activate(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error) {
	return s.transition(ctx, organizerID, id, models.CampaignStatusDraft, models.CampaignStatusActive)
}

func (s *campaignService) Archive(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error) {
	return s.transition(ctx, organizerID, id, models.CampaignStatusActive, models.CampaignStatusArchived)
}

func (s *campaignService) Unarchive(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error) {
	return s.transition(ctx, organizerID, id, models.CampaignStatusArchived, models.CampaignStatusActive)
}

// transition условный переход статуса, конкурентная смена статуса даёт ErrInvalidTransition
func (s *campaignService) transition(ctx context.Context, organizerID, id uuid.UUID, from, to models.CampaignStatus) (*models.Campaign, error) {
	campaign, err := s.Get(ctx, organizerID, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, campaign.Status, to)
	}

	if err := s.campaignRepo.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return nil, processingError("update campaign status", err)
	}
	campaign.Status = to

	s.logger.Info("Campaign status changed",
		zap.String("campaign_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return campaign, nil
}
