package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WebhookTypeOrganization тип записи журнала для вебхука организатора
const WebhookTypeOrganization = "organization"

type WebhookLog struct {
	ID               uuid.UUID         `json:"id"`
	CampaignID       uuid.UUID         `json:"campaign_id"`
	WebhookType      string            `json:"webhook_type"`
	RequestIP        *string           `json:"request_ip,omitempty"`
	RequestHeaders   map[string]string `json:"request_headers"`
	RequestPayload   json.RawMessage   `json:"request_payload"`
	ResponseStatus   int               `json:"response_status"`
	ResponseMessage  string            `json:"response_message"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	ErrorMessage     *string           `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// PurchasePayload событие покупки от внешней билетной платформы.
// Обязательные поля: customer_email, external_event_id, ticket_url.
// Отсутствующий amount означает нулевую комиссию для процентной модели.
type PurchasePayload struct {
	CustomerEmail     string           `json:"customer_email"`
	CustomerName      string           `json:"customer_name,omitempty"`
	CustomerFirstName string           `json:"customer_first_name,omitempty"`
	CustomerLastName  string           `json:"customer_last_name,omitempty"`
	CustomerPhone     string           `json:"customer_phone,omitempty"`
	OrderID           string           `json:"order_id,omitempty"`
	ExternalEventID   string           `json:"external_event_id"`
	TicketURL         string           `json:"ticket_url"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	ReferralCode      string           `json:"referral_code,omitempty"`
}

// Normalize обрезает пробелы и приводит email к нижнему регистру
func (p *PurchasePayload) Normalize() {
	p.CustomerEmail = strings.ToLower(strings.TrimSpace(p.CustomerEmail))
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.CustomerFirstName = strings.TrimSpace(p.CustomerFirstName)
	p.CustomerLastName = strings.TrimSpace(p.CustomerLastName)
	p.CustomerPhone = strings.TrimSpace(p.CustomerPhone)
	p.OrderID = strings.TrimSpace(p.OrderID)
	p.ExternalEventID = strings.TrimSpace(p.ExternalEventID)
	p.TicketURL = strings.TrimSpace(p.TicketURL)
	p.ReferralCode = strings.ToUpper(strings.TrimSpace(p.ReferralCode))
}

// MissingField возвращает имя первого отсутствующего обязательного поля
func (p *PurchasePayload) MissingField() string {
	switch {
	case p.CustomerEmail == "":
		return "customer_email"
	case p.ExternalEventID == "":
		return "external_event_id"
	case p.TicketURL == "":
		return "ticket_url"
	}
	return ""
}

// DisplayName имя покупателя для записи контакта
func (p *PurchasePayload) DisplayName() string {
	if p.CustomerName != "" {
		return p.CustomerName
	}
	full := strings.TrimSpace(p.CustomerFirstName + " " + p.CustomerLastName)
	if full != "" {
		return full
	}
	return "Customer"
}

type ReferralStatus string

const (
	ReferralAttributed   ReferralStatus = "attributed"
	ReferralUnknownCode  ReferralStatus = "unknown_code"
	ReferralSelfRejected ReferralStatus = "self_referral_rejected"
	ReferralDuplicate    ReferralStatus = "duplicate"
)

type ReferralOutcome struct {
	Status           ReferralStatus   `json:"status"`
	ConversionID     *uuid.UUID       `json:"conversion_id,omitempty"`
	CommissionAmount *decimal.Decimal `json:"commission_amount,omitempty"`
	CreditStatus     CreditStatus     `json:"credit_status,omitempty"`
}

// PurchaseResult результат обработки вебхука покупки
type PurchaseResult struct {
	ReferralLink string           `json:"referral_link"`
	ContactID    uuid.UUID        `json:"contact_id"`
	TrackingCode string           `json:"tracking_code"`
	Created      bool             `json:"-"`
	Referral     *ReferralOutcome `json:"referral,omitempty"`
}

// NotificationJob задача на отправку письма рефереру о новой конверсии
type NotificationJob struct {
	ConversionID      uuid.UUID `json:"conversion_id"`
	ReferrerContactID uuid.UUID `json:"referrer_contact_id"`
	CampaignID        uuid.UUID `json:"campaign_id"`
	Attempt           int       `json:"attempt"`
	EnqueuedAt        time.Time `json:"enqueued_at"`
}
