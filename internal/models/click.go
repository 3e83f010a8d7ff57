package models

import (
	"time"

	"github.com/google/uuid"
)

// NotAvailable подставляется вместо отсутствующих заголовков запроса
const NotAvailable = "Not Available"

type Click struct {
	ID          uuid.UUID `json:"id"`
	ContactID   uuid.UUID `json:"contact_id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	ReferrerURL string    `json:"referrer_url"`
	ClickedAt   time.Time `json:"clicked_at"`
}

type ClickMeta struct {
	IPAddress   string
	UserAgent   string
	ReferrerURL string
}

// Normalized заменяет пустые поля на NotAvailable
func (m ClickMeta) Normalized() ClickMeta {
	if m.IPAddress == "" {
		m.IPAddress = NotAvailable
	}
	if m.UserAgent == "" {
		m.UserAgent = NotAvailable
	}
	if m.ReferrerURL == "" {
		m.ReferrerURL = NotAvailable
	}
	return m
}
