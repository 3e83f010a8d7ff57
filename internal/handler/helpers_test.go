package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/SergeiKhy/referral-service/internal/handler"
	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/middleware"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/SergeiKhy/referral-service/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBaseURL  = "https://ref.example.com"
	testClientID = "org_test"
	testAPIKey   = "test-key"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

// testServer роутер поверх сервисов с моковыми репозиториями
type testServer struct {
	organizerID uuid.UUID

	organizers  *mocks.MockOrganizerRepository
	campaigns   *mocks.MockCampaignRepository
	contacts    *mocks.MockContactRepository
	clicks      *mocks.MockClickRepository
	conversions *mocks.MockConversionRepository
	credits     *mocks.MockCreditRepository
	logs        *mocks.MockWebhookLogRepository
	queue       *mocks.MockNotificationQueue
	sender      *mocks.MockSender

	health map[string]handler.Pinger
	router *gin.Engine

	services handler.Services
	config   handler.RouterConfig
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		organizerID: uuid.New(),
		organizers:  mocks.NewMockOrganizerRepository(),
		campaigns:   mocks.NewMockCampaignRepository(),
		clicks:      mocks.NewMockClickRepository(),
		conversions: mocks.NewMockConversionRepository(),
		credits:     mocks.NewMockCreditRepository(),
		logs:        mocks.NewMockWebhookLogRepository(),
		queue:       mocks.NewMockNotificationQueue(),
		sender:      mocks.NewMockSender(),
		health:      map[string]handler.Pinger{"postgres": fakePinger{}},
	}
	s.contacts = mocks.NewMockContactRepository(s.campaigns)
	s.organizers.Add(&models.OrganizerProfile{
		UserID:   s.organizerID,
		ClientID: testClientID,
		FullName: "Test Organizer",
	})

	m := metrics.New()
	logger := zap.NewNop()

	guard := service.NewWebhookGuard(s.logs, logger)
	resolver := service.NewCampaignResolver(s.organizers, s.campaigns, m, logger)
	attribution := service.NewAttributionService(s.contacts, s.conversions, s.credits, guard, testBaseURL, m, logger)
	notifier := service.NewNotifier(s.queue, s.conversions, s.campaigns, s.contacts, s.sender, m, logger)

	svc := handler.Services{
		Webhooks:    service.NewWebhookService(resolver, attribution, service.NewWebhookLogger(s.logs, logger), m, logger),
		Clicks:      service.NewClickTracker(s.contacts, s.clicks, nil, 0, testBaseURL, m, logger),
		Conversions: service.NewConversionService(s.contacts, s.conversions, s.credits, notifier, m, logger),
		Unlocker:    service.NewCreditUnlocker(s.campaigns, s.credits, m, logger),
		Profiles:    service.NewProfileService(s.organizers, logger),
		Campaigns:   service.NewCampaignService(s.campaigns, s.organizers, logger),
		Invites:     service.NewInviteService(s.campaigns, s.contacts, s.sender, testBaseURL, m, logger),
	}

	s.services = svc
	s.metrics = m
	s.config = handler.RouterConfig{
		SecureCookie: true,
		APIKeys:      map[string]string{testAPIKey: "cron"},
		Health:       s.health,
	}
	s.router = handler.NewRouter(svc, s.config, handler.Limiters{}, m, zap.NewNop())
	return s
}

// withLimiters пересобирает роутер с ограничителями периметра
func (s *testServer) withLimiters(t *testing.T, limiters handler.Limiters) {
	t.Helper()
	t.Cleanup(func() {
		if limiters.Edge != nil {
			limiters.Edge.Stop()
		}
		if limiters.Webhook != nil {
			limiters.Webhook.Stop()
		}
	})
	s.router = handler.NewRouter(s.services, s.config, limiters, s.metrics, zap.NewNop())
}

func (s *testServer) addCampaign(t *testing.T, eventID string, mutate func(c *models.Campaign)) *models.Campaign {
	t.Helper()

	id := eventID
	c := &models.Campaign{
		OrganizerID:      s.organizerID,
		Name:             "Summer Fest",
		ExternalEventID:  &id,
		DestinationURL:   "https://tickets.example.com/summer?utm=mail",
		Status:           models.CampaignStatusActive,
		CommissionType:   models.CommissionFixed,
		CommissionValue:  decimal.RequireFromString("3.00"),
		CreditUnlockType: models.UnlockImmediate,
		RateLimitEnabled: true,
		RateLimitPerHour: models.DefaultRateLimitPerHour,
		IntegrationType:  models.IntegrationWebhookOrganization,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, s.campaigns.Create(context.Background(), c))
	return c
}

func (s *testServer) addContact(t *testing.T, campaign *models.Campaign, email, code string) *models.Contact {
	t.Helper()

	c := &models.Contact{
		CampaignID: campaign.ID,
		Name:       "Referrer",
		Email:      email,
		UniqueCode: code,
		ShortLink:  testBaseURL + "/r/" + code,
		Source:     models.SourceManual,
	}
	require.NoError(t, s.contacts.Create(context.Background(), c))
	return c
}

func (s *testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// dashboard заголовки авторизации dashboard API
func (s *testServer) dashboard() map[string]string {
	return map[string]string{
		"X-API-Key":                testAPIKey,
		middleware.OrganizerHeader: s.organizerID.String(),
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var errPingFailed = errors.New("connection refused")

