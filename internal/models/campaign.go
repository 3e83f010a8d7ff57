package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusArchived CampaignStatus = "archived"
)

type CommissionType string

const (
	CommissionFixed      CommissionType = "fixed"
	CommissionPercentage CommissionType = "percentage"
)

func (t CommissionType) Valid() bool {
	return t == CommissionFixed || t == CommissionPercentage
}

type CreditUnlockType string

const (
	UnlockEventBased CreditUnlockType = "event_based"
	UnlockImmediate  CreditUnlockType = "immediate"
	UnlockDelayed    CreditUnlockType = "delayed"
)

func (t CreditUnlockType) Valid() bool {
	return t == UnlockEventBased || t == UnlockImmediate || t == UnlockDelayed
}

const (
	IntegrationManual              = "manual"
	IntegrationWebhookOrganization = "webhook_organization"
)

// DefaultRateLimitPerHour лимит вебхуков в час для новых кампаний
const DefaultRateLimitPerHour = 100

type Campaign struct {
	ID               uuid.UUID        `json:"id"`
	OrganizerID      uuid.UUID        `json:"organizer_id"`
	Name             string           `json:"name"`
	ExternalEventID  *string          `json:"external_event_id,omitempty"`
	DestinationURL   string           `json:"destination_url"`
	Status           CampaignStatus   `json:"status"`
	CommissionType   CommissionType   `json:"commission_type"`
	CommissionValue  decimal.Decimal  `json:"commission_value"`
	CreditUnlockType CreditUnlockType `json:"credit_unlock_type"`
	CreditUnlockDays int              `json:"credit_unlock_days"`
	EventDate        *time.Time       `json:"event_date,omitempty"`
	EventEndDate     *time.Time       `json:"event_end_date,omitempty"`
	PromotionEndDate *time.Time       `json:"promotion_end_date,omitempty"`
	RateLimitEnabled bool             `json:"rate_limit_enabled"`
	RateLimitPerHour int              `json:"rate_limit_per_hour"`
	IntegrationType  string           `json:"integration_type"`
	EmailSubject     string           `json:"email_subject,omitempty"`
	EmailTemplate    string           `json:"email_template,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

type CreateCampaignInput struct {
	OrganizerID      uuid.UUID         `json:"-"`
	Name             string            `json:"name" binding:"required"`
	ExternalEventID  *string           `json:"external_event_id,omitempty"`
	DestinationURL   string            `json:"destination_url" binding:"required,url"`
	CommissionType   *CommissionType   `json:"commission_type,omitempty"`
	CommissionValue  *decimal.Decimal  `json:"commission_value,omitempty"`
	CreditUnlockType *CreditUnlockType `json:"credit_unlock_type,omitempty"`
	CreditUnlockDays *int              `json:"credit_unlock_days,omitempty"`
	EventDate        *time.Time        `json:"event_date,omitempty"`
	EventEndDate     *time.Time        `json:"event_end_date,omitempty"`
	PromotionEndDate *time.Time        `json:"promotion_end_date,omitempty"`
	RateLimitEnabled *bool             `json:"rate_limit_enabled,omitempty"`
	RateLimitPerHour *int              `json:"rate_limit_per_hour,omitempty"`
	EmailSubject     string            `json:"email_subject,omitempty"`
	EmailTemplate    string            `json:"email_template,omitempty"`
}
