package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Conversion struct {
	ID                        uuid.UUID           `json:"id"`
	CampaignID                uuid.UUID           `json:"campaign_id"`
	ReferrerContactID         uuid.UUID           `json:"referrer_contact_id"`
	ReferralCode              string              `json:"referral_code"`
	ReferredCustomerEmail     *string             `json:"referred_customer_email,omitempty"`
	ReferredCustomerFirstName *string             `json:"referred_customer_first_name,omitempty"`
	ReferredCustomerLastName  *string             `json:"referred_customer_last_name,omitempty"`
	ReferredCustomerPhone     *string             `json:"referred_customer_phone,omitempty"`
	BuyerEmail                *string             `json:"buyer_email,omitempty"`
	OrderID                   *string             `json:"order_id,omitempty"`
	Amount                    decimal.NullDecimal `json:"amount"`
	CommissionType            CommissionType      `json:"commission_type"`
	CommissionValue           decimal.Decimal     `json:"commission_value"`
	CommissionAmount          decimal.Decimal     `json:"commission_amount"`
	NotificationSent          bool                `json:"notification_sent"`
	ConvertedAt               time.Time           `json:"converted_at"`
}

type ConversionStatus string

const (
	ConversionSuccess   ConversionStatus = "success"
	ConversionDuplicate ConversionStatus = "duplicate"
	ConversionNotNew    ConversionStatus = "not_new"
	// ConversionSelfReferral покупатель пришёл по собственной ссылке
	ConversionSelfReferral ConversionStatus = "self_referral_rejected"
)

// ConversionInput тело запроса пикселя конверсии
type ConversionInput struct {
	RefCode    string           `json:"ref_code"`
	OrderID    string           `json:"order_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	BuyerEmail string           `json:"buyer_email,omitempty"`
}

type ConversionOutcome struct {
	Status       ConversionStatus `json:"status"`
	ConversionID *uuid.UUID       `json:"conversion_id,omitempty"`
	Message      string           `json:"message,omitempty"`
}
