package handler_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/SergeiKhy/referral-service/internal/handler"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaseBody(email, eventID string) map[string]any {
	return map[string]any{
		"customer_email":    email,
		"customer_name":     "Jane Buyer",
		"external_event_id": eventID,
		"ticket_url":        "https://tickets.example.com/" + eventID,
		"amount":            "50.00",
	}
}

const webhookPath = "/api/webhooks/org/" + testClientID

// TestOrganizationWebhook_CreatesThenReturnsExisting первый вебхук 201, повтор 200 с той же ссылкой
func TestOrganizationWebhook_CreatesThenReturnsExisting(t *testing.T) {
	s := newTestServer(t)
	s.addCampaign(t, "evt-1", nil)

	w := s.do(http.MethodPost, webhookPath, purchaseBody("Jane@Example.com", "evt-1"), map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		"User-Agent":      "ticketing-bot/1.0",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	first := decode[handler.WebhookResponse](t, w)
	assert.True(t, first.Success)
	assert.Equal(t, service.MsgLinkGenerated, first.Message)
	assert.Equal(t, testBaseURL+"/r/"+first.TrackingCode, first.ReferralLink)

	w = s.do(http.MethodPost, webhookPath, purchaseBody("jane@example.com", "evt-1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[handler.WebhookResponse](t, w)
	assert.Equal(t, first.ContactID, second.ContactID)
	assert.Equal(t, service.MsgLinkExisting, second.Message)

	logs := s.logs.Logs()
	require.Len(t, logs, 2)
	var created models.WebhookLog
	for _, l := range logs {
		if l.ResponseStatus == http.StatusCreated {
			created = l
		}
	}
	require.NotNil(t, created.RequestIP)
	assert.Equal(t, "203.0.113.7", *created.RequestIP)
	assert.Equal(t, "ticketing-bot/1.0", created.RequestHeaders["user-agent"])
	assert.Contains(t, string(created.RequestPayload), "evt-1")
}

// TestOrganizationWebhook_Validation невалидный JSON и отсутствующие поля дают 400
func TestOrganizationWebhook_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, webhookPath, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_payload", decode[handler.ErrorResponse](t, w).Error)

	body := purchaseBody("jane@example.com", "evt-1")
	delete(body, "ticket_url")
	w = s.do(http.MethodPost, webhookPath, body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, "missing_field", resp.Error)
	assert.Contains(t, resp.Message, "ticket_url")
}

// TestOrganizationWebhook_UnknownClient неизвестный client_id дает 404
func TestOrganizationWebhook_UnknownClient(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/webhooks/org/org_missing", purchaseBody("jane@example.com", "evt-1"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "client_not_found", decode[handler.ErrorResponse](t, w).Error)
}

// TestOrganizationWebhook_UnknownClientBeforeURL неизвестный client_id дает 404 даже с невалидным ticket_url
func TestOrganizationWebhook_UnknownClientBeforeURL(t *testing.T) {
	s := newTestServer(t)

	body := purchaseBody("jane@example.com", "evt-1")
	body["ticket_url"] = "not a url"
	w := s.do(http.MethodPost, "/api/webhooks/org/nope", body, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "client_not_found", decode[handler.ErrorResponse](t, w).Error)
}

// TestOrganizationWebhook_EmptyAmount пустая строка в amount означает отсутствие суммы
func TestOrganizationWebhook_EmptyAmount(t *testing.T) {
	s := newTestServer(t)
	campaign := s.addCampaign(t, "evt-1", func(c *models.Campaign) {
		c.CommissionType = models.CommissionPercentage
		c.CommissionValue = decimal.NewFromInt(10)
	})
	s.addContact(t, campaign, "ref@example.com", "REF00001")

	body := purchaseBody("jane@example.com", "evt-1")
	body["amount"] = ""
	body["referral_code"] = "REF00001"
	w := s.do(http.MethodPost, webhookPath, body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[handler.WebhookResponse](t, w)
	require.NotNil(t, resp.Referral)
	assert.Equal(t, models.ReferralAttributed, resp.Referral.Status)

	conversions := s.conversions.All()
	require.Len(t, conversions, 1)
	assert.False(t, conversions[0].Amount.Valid)
	assert.True(t, conversions[0].CommissionAmount.IsZero())
}

// TestOrganizationWebhook_InvalidEmail адрес с переводом строки дает 400
func TestOrganizationWebhook_InvalidEmail(t *testing.T) {
	s := newTestServer(t)
	s.addCampaign(t, "evt-1", nil)

	w := s.do(http.MethodPost, webhookPath, purchaseBody("jane@example.com\r\nBcc: all@example.com", "evt-1"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_email", decode[handler.ErrorResponse](t, w).Error)
}

// TestOrganizationWebhook_CampaignNotActive архивная кампания дает 403
func TestOrganizationWebhook_CampaignNotActive(t *testing.T) {
	s := newTestServer(t)
	s.addCampaign(t, "evt-1", func(c *models.Campaign) { c.Status = models.CampaignStatusArchived })

	w := s.do(http.MethodPost, webhookPath, purchaseBody("jane@example.com", "evt-1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.MsgCampaignNotActive, decode[handler.ErrorResponse](t, w).Message)
}

// TestOrganizationWebhook_RateLimited превышение лимита кампании дает 429 с заголовками
func TestOrganizationWebhook_RateLimited(t *testing.T) {
	s := newTestServer(t)
	s.addCampaign(t, "evt-1", func(c *models.Campaign) { c.RateLimitPerHour = 1 })

	w := s.do(http.MethodPost, webhookPath, purchaseBody("first@example.com", "evt-1"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, webhookPath, purchaseBody("second@example.com", "evt-1"), nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	_, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	assert.NoError(t, err)

	resp := decode[handler.RateLimitResponse](t, w)
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.Equal(t, 1, resp.Limit)
	assert.Equal(t, int64(1), resp.Current)
	assert.NotEmpty(t, resp.ResetAt)
}

// TestOrganizationWebhook_Preflight OPTIONS отвечает 204 с CORS заголовками
func TestOrganizationWebhook_Preflight(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodOptions, webhookPath, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}
