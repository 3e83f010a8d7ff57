package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/referral-service/internal/email"
	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxInviteBatch максимум получателей в одном запросе рассылки
const maxInviteBatch = 500

// InviteService рассылает приглашения кампании с уникальными ссылками
type InviteService interface {
	Send(ctx context.Context, organizerID, campaignID uuid.UUID, contacts []models.InviteContact) (*models.SendResult, error)
}

type inviteService struct {
	campaignRepo repository.CampaignRepository
	contactRepo  repository.ContactRepository
	sender       email.Sender
	baseURL      string
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
	newCode      CodeGenerator
}

func NewInviteService(
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	sender email.Sender,
	baseURL string,
	m *metrics.Metrics,
	logger *zap.Logger,
) InviteService {
	return &inviteService{
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		sender:       sender,
		baseURL:      baseURL,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
		newCode:      GenerateCode,
	}
}

// Send создаёт контакт и отправляет письмо каждому получателю. Ошибка
// отдельного получателя попадает в его результат и не прерывает пачку.
// После рассылки черновик кампании становится активным.
func (s *inviteService) Send(ctx context.Context, organizerID, campaignID uuid.UUID, contacts []models.InviteContact) (*models.SendResult, error) {
	if len(contacts) == 0 {
		return nil, fmt.Errorf("%w: contacts", ErrMissingField)
	}
	if len(contacts) > maxInviteBatch {
		return nil, fmt.Errorf("%w: at most %d contacts per request", ErrInvalidPayload, maxInviteBatch)
	}

	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, processingError("get campaign", err)
	}
	if campaign.OrganizerID != organizerID {
		return nil, ErrCampaignNotFound
	}
	if campaign.Status == models.CampaignStatusArchived {
		return nil, fmt.Errorf("%w: campaign is archived", ErrInvalidTransition)
	}

	result := &models.SendResult{
		Success: true,
		Results: make([]models.InviteResult, 0, len(contacts)),
		Total:   len(contacts),
	}

	for _, in := range contacts {
		r := s.invite(ctx, campaign, in)
		if r.Status == models.InviteSent {
			result.Sent++
		} else {
			result.Failed++
		}
		s.metrics.IncInvite(string(r.Status))
		result.Results = append(result.Results, r)
	}

	if campaign.Status == models.CampaignStatusDraft {
		s.activate(ctx, campaign)
	}

	s.logger.Info("Campaign invites processed",
		zap.String("campaign_id", campaign.ID.String()),
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *inviteService) invite(ctx context.Context, campaign *models.Campaign, in models.InviteContact) models.InviteResult {
	addr := strings.ToLower(strings.TrimSpace(in.Email))
	failed := func(msg string) models.InviteResult {
		return models.InviteResult{Email: in.Email, Status: models.InviteFailed, Error: msg}
	}

	if !validEmail(addr) {
		return failed(ErrInvalidEmail.Error())
	}

	contact, err := s.createContact(ctx, campaign, in, addr)
	if err != nil {
		if repository.IsDuplicate(err) {
			return failed("contact already exists in campaign")
		}
		s.logger.Error("Failed to create invite contact",
			zap.String("campaign_id", campaign.ID.String()),
			zap.Error(err),
		)
		return failed("failed to create contact")
	}

	name := strings.TrimSpace(in.Name)
	body := email.RenderTemplate(campaign.EmailTemplate, email.Variables{
		Name:  name,
		Link:  contact.ShortLink,
		Event: campaign.Name,
	})
	subject := campaign.EmailSubject
	if subject == "" {
		subject = email.DefaultInviteSubject
	}

	msg := email.Message{
		To:      addr,
		Subject: subject,
		HTML:    email.InvitationHTML(body, contact.ShortLink, campaign.Name),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send invite",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("contact_id", contact.ID.String()),
			zap.Error(err),
		)
		return failed("failed to send email")
	}

	// письмо ушло, поэтому ошибка отметки не меняет результат
	if err := s.contactRepo.MarkEmailSent(ctx, contact.ID, s.now()); err != nil {
		s.logger.Warn("Failed to mark invite as sent",
			zap.String("contact_id", contact.ID.String()),
			zap.Error(err),
		)
	}

	return models.InviteResult{Email: in.Email, Status: models.InviteSent, Link: contact.ShortLink}
}

// createContact вставляет контакт, при коллизии кода генерирует новый
func (s *inviteService) createContact(ctx context.Context, campaign *models.Campaign, in models.InviteContact, addr string) (*models.Contact, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		contact := &models.Contact{
			ID:         uuid.New(),
			CampaignID: campaign.ID,
			Name:       strings.TrimSpace(in.Name),
			Email:      addr,
			Phone:      optional(strings.TrimSpace(in.Phone)),
			UniqueCode: code,
			ShortLink:  shortLink(s.baseURL, code),
			Source:     models.SourceCampaignSend,
		}

		err = s.contactRepo.Create(ctx, contact)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, err
		}
		s.logger.Debug("Referral code collision, regenerating",
			zap.String("campaign_id", campaign.ID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, errors.New("could not allocate a unique referral code")
}

func (s *inviteService) activate(ctx context.Context, campaign *models.Campaign) {
	err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusActive)
	switch {
	case err == nil:
		s.logger.Info("Campaign status changed",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("from", string(models.CampaignStatusDraft)),
			zap.String("to", string(models.CampaignStatusActive)),
		)
	case errors.Is(err, repository.ErrStatusConflict):
		// кампанию уже перевели параллельно
	default:
		s.logger.Error("Failed to activate campaign after invites",
			zap.String("campaign_id", campaign.ID.String()),
			zap.Error(err),
		)
	}
}
