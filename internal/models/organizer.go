package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Значения по умолчанию, если организатор их не задал
var DefaultCommissionValue = decimal.RequireFromString("3.00")

const (
	DefaultCommissionType   = CommissionFixed
	DefaultCreditUnlockType = UnlockEventBased
)

type OrganizerProfile struct {
	ID                      uuid.UUID        `json:"id"`
	UserID                  uuid.UUID        `json:"user_id"`
	ClientID                string           `json:"client_id"`
	FullName                string           `json:"full_name"`
	CompanyName             string           `json:"company_name"`
	DefaultCommissionType   CommissionType   `json:"webhook_default_commission_type"`
	DefaultCommissionValue  decimal.Decimal  `json:"webhook_default_commission_value"`
	DefaultCreditUnlockType CreditUnlockType `json:"default_credit_unlock_type"`
	DefaultCreditUnlockDays int              `json:"default_credit_unlock_days"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// CampaignDefaults настройки, которые получает автоматически созданная кампания
type CampaignDefaults struct {
	CommissionType   CommissionType
	CommissionValue  decimal.Decimal
	CreditUnlockType CreditUnlockType
	CreditUnlockDays int
}

// Defaults возвращает настройки организатора с подставленными значениями по умолчанию
func (p *OrganizerProfile) Defaults() CampaignDefaults {
	d := CampaignDefaults{
		CommissionType:   DefaultCommissionType,
		CommissionValue:  DefaultCommissionValue,
		CreditUnlockType: DefaultCreditUnlockType,
	}
	if p == nil {
		return d
	}
	if p.DefaultCommissionType.Valid() {
		d.CommissionType = p.DefaultCommissionType
	}
	if !p.DefaultCommissionValue.IsZero() {
		d.CommissionValue = p.DefaultCommissionValue
	}
	if p.DefaultCreditUnlockType.Valid() {
		d.CreditUnlockType = p.DefaultCreditUnlockType
	}
	if p.DefaultCreditUnlockDays > 0 {
		d.CreditUnlockDays = p.DefaultCreditUnlockDays
	}
	return d
}

// UpdateProfileInput тело PUT /api/profile. Пустые указатели не меняют значения.
type UpdateProfileInput struct {
	UserID                  uuid.UUID         `json:"-"`
	FullName                *string           `json:"full_name,omitempty"`
	CompanyName             *string           `json:"company_name,omitempty"`
	DefaultCommissionType   *CommissionType   `json:"webhook_default_commission_type,omitempty"`
	DefaultCommissionValue  *decimal.Decimal  `json:"webhook_default_commission_value,omitempty"`
	DefaultCreditUnlockType *CreditUnlockType `json:"default_credit_unlock_type,omitempty"`
	DefaultCreditUnlockDays *int              `json:"default_credit_unlock_days,omitempty"`
}
