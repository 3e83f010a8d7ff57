package handler_test

import (
	"net/http"
	"testing"

	"github.com/SergeiKhy/referral-service/internal/handler"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrackConversion успешная конверсия, повтор заказа и повторный покупатель
func TestTrackConversion(t *testing.T) {
	s := newTestServer(t)
	campaign := s.addCampaign(t, "evt-1", nil)
	s.addContact(t, campaign, "ref@example.com", "ABC123")

	w := s.do(http.MethodPost, "/api/conversion", map[string]any{
		"ref_code":    "abc123",
		"order_id":    "ord-1",
		"amount":      25.5,
		"buyer_email": "buyer@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[models.ConversionOutcome](t, w)
	assert.Equal(t, models.ConversionSuccess, first.Status)
	require.NotNil(t, first.ConversionID)
	assert.Equal(t, 1, s.queue.Enqueued())

	w = s.do(http.MethodPost, "/api/conversion", map[string]any{"ref_code": "ABC123", "order_id": "ord-1"}, nil)
	dup := decode[models.ConversionOutcome](t, w)
	assert.Equal(t, models.ConversionDuplicate, dup.Status)
	assert.Equal(t, first.ConversionID, dup.ConversionID)

	w = s.do(http.MethodPost, "/api/conversion", map[string]any{
		"ref_code":    "ABC123",
		"order_id":    "ord-2",
		"buyer_email": "BUYER@example.com",
	}, nil)
	assert.Equal(t, models.ConversionNotNew, decode[models.ConversionOutcome](t, w).Status)

	assert.Len(t, s.conversions.All(), 1)
	assert.Len(t, s.credits.All(), 1)
}

// TestTrackConversion_SelfReferralAndEmptyAmount собственная ссылка реферера не даёт кредита, пустой amount не ломает запрос
func TestTrackConversion_SelfReferralAndEmptyAmount(t *testing.T) {
	s := newTestServer(t)
	campaign := s.addCampaign(t, "evt-1", nil)
	s.addContact(t, campaign, "alice@example.com", "ALICE001")

	w := s.do(http.MethodPost, "/api/conversion", map[string]any{
		"ref_code":    "ALICE001",
		"order_id":    "ord-1",
		"amount":      "",
		"buyer_email": "Alice@Example.com",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ConversionSelfReferral, decode[models.ConversionOutcome](t, w).Status)
	assert.Empty(t, s.conversions.All())
	assert.Empty(t, s.credits.All())

	w = s.do(http.MethodPost, "/api/conversion", map[string]any{
		"ref_code":    "ALICE001",
		"order_id":    "ord-2",
		"amount":      "",
		"buyer_email": "bob@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ConversionSuccess, decode[models.ConversionOutcome](t, w).Status)
	assert.Len(t, s.credits.All(), 1)
}

// TestTrackConversion_Errors без кода и с неизвестным кодом 400
func TestTrackConversion_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/conversion", map[string]any{"order_id": "ord-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_ref_code", decode[handler.ErrorResponse](t, w).Error)

	w = s.do(http.MethodPost, "/api/conversion", map[string]any{"ref_code": "NOPE"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_ref_code", decode[handler.ErrorResponse](t, w).Error)

	w = s.do(http.MethodOptions, "/api/conversion", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
