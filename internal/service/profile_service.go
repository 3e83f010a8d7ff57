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

// maxClientIDAttempts сколько раз генерировать client_id при коллизии
const maxClientIDAttempts = 3

// ProfileService настройки организатора: client_id вебхука и значения по умолчанию
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.OrganizerProfile, error)
	Save(ctx context.Context, input *models.UpdateProfileInput) (*models.OrganizerProfile, error)
}

type profileService struct {
	organizerRepo repository.OrganizerRepository
	logger        *zap.Logger
	newClientID   CodeGenerator
}

func NewProfileService(organizerRepo repository.OrganizerRepository, logger *zap.Logger) ProfileService {
	return &profileService{
		organizerRepo: organizerRepo,
		logger:        logger,
		newClientID:   GenerateClientID,
	}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*models.OrganizerProfile, error) {
	profile, err := s.organizerRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizerNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, processingError("get profile", err)
	}
	return profile, nil
}

// Save применяет заданные поля к профилю. При первом сохранении
// профилю выдаётся client_id, который затем не меняется.
func (s *profileService) Save(ctx context.Context, in *models.UpdateProfileInput) (*models.OrganizerProfile, error) {
	profile, err := s.organizerRepo.GetByUserID(ctx, in.UserID)
	switch {
	case errors.Is(err, repository.ErrOrganizerNotFound):
		d := (*models.OrganizerProfile)(nil).Defaults()
		profile = &models.OrganizerProfile{
			UserID:                  in.UserID,
			DefaultCommissionType:   d.CommissionType,
			DefaultCommissionValue:  d.CommissionValue,
			DefaultCreditUnlockType: d.CreditUnlockType,
		}
	case err != nil:
		return nil, processingError("load profile", err)
	}

	applyProfileInput(profile, in)
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	if profile.ClientID != "" {
		if err := s.organizerRepo.Upsert(ctx, profile); err != nil {
			return nil, processingError("save profile", err)
		}
		return profile, nil
	}

	for attempt := 1; attempt <= maxClientIDAttempts; attempt++ {
		clientID, err := s.newClientID()
		if err != nil {
			return nil, processingError("generate client id", err)
		}
		profile.ClientID = clientID

		err = s.organizerRepo.Upsert(ctx, profile)
		if err == nil {
			s.logger.Info("Organizer profile created",
				zap.String("user_id", profile.UserID.String()),
				zap.String("client_id", profile.ClientID),
			)
			return profile, nil
		}
		if !errors.Is(err, repository.ErrDuplicateClient) {
			return nil, processingError("save profile", err)
		}
	}

	return nil, processingError("save profile", errors.New("could not allocate a unique client id"))
}

func applyProfileInput(p *models.OrganizerProfile, in *models.UpdateProfileInput) {
	if in.FullName != nil {
		p.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.CompanyName != nil {
		p.CompanyName = strings.TrimSpace(*in.CompanyName)
	}
	if in.DefaultCommissionType != nil {
		p.DefaultCommissionType = *in.DefaultCommissionType
	}
	if in.DefaultCommissionValue != nil {
		p.DefaultCommissionValue = *in.DefaultCommissionValue
	}
	if in.DefaultCreditUnlockType != nil {
		p.DefaultCreditUnlockType = *in.DefaultCreditUnlockType
	}
	if in.DefaultCreditUnlockDays != nil {
		p.DefaultCreditUnlockDays = *in.DefaultCreditUnlockDays
	}
}

func validateProfile(p *models.OrganizerProfile) error {
	switch {
	case !p.DefaultCommissionType.Valid():
		return fmt.Errorf("%w: unknown commission type %q", ErrInvalidProfile, p.DefaultCommissionType)
	case p.DefaultCommissionValue.IsNegative():
		return fmt.Errorf("%w: commission value must not be negative", ErrInvalidProfile)
	case !p.DefaultCreditUnlockType.Valid():
		return fmt.Errorf("%w: unknown credit unlock type %q", ErrInvalidProfile, p.DefaultCreditUnlockType)
	case p.DefaultCreditUnlockDays < 0:
		return fmt.Errorf("%w: credit unlock days must not be negative", ErrInvalidProfile)
	}
	return nil
}
