package models

import (
	"time"

	"github.com/google/uuid"
)

type ContactSource string

const (
	SourceManual              ContactSource = "manual"
	SourceCSV                 ContactSource = "csv"
	SourceCampaignSend        ContactSource = "campaign_send"
	SourceWebhookOrganization ContactSource = "webhook_organization"
)

type Contact struct {
	ID             uuid.UUID     `json:"id"`
	CampaignID     uuid.UUID     `json:"campaign_id"`
	Name           string        `json:"name"`
	FirstName      *string       `json:"first_name,omitempty"`
	LastName       *string       `json:"last_name,omitempty"`
	Email          string        `json:"email"`
	Phone          *string       `json:"phone,omitempty"`
	UniqueCode     string        `json:"unique_code"`
	ShortLink      string        `json:"short_link"`
	OrderID        *string       `json:"order_id,omitempty"`
	DestinationURL *string       `json:"destination_url,omitempty"`
	Source         ContactSource `json:"source"`
	EmailSentAt    *time.Time    `json:"email_sent_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ContactWithCampaign контакт вместе с кампанией, к которой он относится
type ContactWithCampaign struct {
	Contact  Contact
	Campaign Campaign
}

// InviteContact получатель приглашения из запроса организатора
type InviteContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type SendInvitesInput struct {
	Contacts []InviteContact `json:"contacts" binding:"required,min=1"`
}

type InviteStatus string

const (
	InviteSent   InviteStatus = "sent"
	InviteFailed InviteStatus = "failed"
)

type InviteResult struct {
	Email  string       `json:"email"`
	Status InviteStatus `json:"status"`
	Link   string       `json:"link,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// SendResult итог рассылки: ошибки по отдельным контактам не прерывают пачку
type SendResult struct {
	Success bool           `json:"success"`
	Results []InviteResult `json:"results"`
	Total   int            `json:"total"`
	Sent    int            `json:"sent"`
	Failed  int            `json:"failed"`
}
