package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditStatus string

const (
	CreditPending   CreditStatus = "pending"
	CreditAvailable CreditStatus = "available"
)

type Credit struct {
	ID           uuid.UUID       `json:"id"`
	ContactID    uuid.UUID       `json:"contact_id"`
	CampaignID   uuid.UUID       `json:"campaign_id"`
	ConversionID uuid.UUID       `json:"conversion_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       CreditStatus    `json:"status"`
	UnlockedAt   *time.Time      `json:"unlocked_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type UnlockResult struct {
	UnlockedCount int64     `json:"unlocked_count"`
	EventBased    int64     `json:"event_based"`
	Delayed       int64     `json:"delayed"`
	RanAt         time.Time `json:"timestamp"`
}
