package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/SergeiKhy/referral-service/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBaseURL  = "https://ref.example.com"
	testClientID = "org_test"
)

// testEnv сервисы поверх моковых репозиториев
type testEnv struct {
	organizerID uuid.UUID

	organizers  *mocks.MockOrganizerRepository
	campaigns   *mocks.MockCampaignRepository
	contacts    *mocks.MockContactRepository
	clicks      *mocks.MockClickRepository
	conversions *mocks.MockConversionRepository
	credits     *mocks.MockCreditRepository
	logs        *mocks.MockWebhookLogRepository
	queue       *mocks.MockNotificationQueue
	cache       *mocks.MockLinkCache
	sender      *mocks.MockSender

	metrics *metrics.Metrics
	logger  *zap.Logger

	guard       service.WebhookGuard
	resolver    service.CampaignResolver
	attribution service.AttributionService
	webhooks    service.WebhookService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		organizerID: uuid.New(),
		organizers:  mocks.NewMockOrganizerRepository(),
		campaigns:   mocks.NewMockCampaignRepository(),
		clicks:      mocks.NewMockClickRepository(),
		conversions: mocks.NewMockConversionRepository(),
		credits:     mocks.NewMockCreditRepository(),
		logs:        mocks.NewMockWebhookLogRepository(),
		queue:       mocks.NewMockNotificationQueue(),
		cache:       mocks.NewMockLinkCache(),
		sender:      mocks.NewMockSender(),
		metrics:     metrics.New(),
		logger:      zap.NewNop(),
	}
	env.contacts = mocks.NewMockContactRepository(env.campaigns)

	env.organizers.Add(&models.OrganizerProfile{
		UserID:   env.organizerID,
		ClientID: testClientID,
		FullName: "Test Organizer",
	})

	env.guard = service.NewWebhookGuard(env.logs, env.logger)
	env.resolver = service.NewCampaignResolver(env.organizers, env.campaigns, env.metrics, env.logger)
	env.attribution = service.NewAttributionService(
		env.contacts, env.conversions, env.credits, env.guard, testBaseURL, env.metrics, env.logger,
	)
	env.webhooks = service.NewWebhookService(
		env.resolver,
		env.attribution,
		service.NewWebhookLogger(env.logs, env.logger),
		env.metrics,
		env.logger,
	)
	return env
}

// addCampaign создаёт кампанию организатора для external_event_id
func (e *testEnv) addCampaign(t *testing.T, eventID string, mutate func(c *models.Campaign)) *models.Campaign {
	t.Helper()

	id := eventID
	c := &models.Campaign{
		OrganizerID:      e.organizerID,
		Name:             "Summer Fest",
		ExternalEventID:  &id,
		DestinationURL:   "https://tickets.example.com/summer",
		Status:           models.CampaignStatusActive,
		CommissionType:   models.CommissionFixed,
		CommissionValue:  decimal.RequireFromString("3.00"),
		CreditUnlockType: models.UnlockEventBased,
		RateLimitEnabled: true,
		RateLimitPerHour: models.DefaultRateLimitPerHour,
		IntegrationType:  models.IntegrationWebhookOrganization,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, e.campaigns.Create(context.Background(), c))
	return c
}

// addContact добавляет контакт с заданным кодом в кампанию
func (e *testEnv) addContact(t *testing.T, campaign *models.Campaign, email, code string) *models.Contact {
	t.Helper()

	c := &models.Contact{
		CampaignID: campaign.ID,
		Name:       "Referrer",
		Email:      email,
		UniqueCode: code,
		ShortLink:  testBaseURL + "/r/" + code,
		Source:     models.SourceManual,
	}
	require.NoError(t, e.contacts.Create(context.Background(), c))
	return c
}

func (e *testEnv) purchase(email, eventID string) *service.WebhookRequest {
	return &service.WebhookRequest{
		ClientID: testClientID,
		Payload: models.PurchasePayload{
			CustomerEmail:   email,
			CustomerName:    "Jane Buyer",
			ExternalEventID: eventID,
			TicketURL:       "https://tickets.example.com/" + eventID,
		},
		RawBody: []byte(`{}`),
		Headers: map[string]string{"content-type": "application/json"},
	}
}

// sequentialCodes детерминированный генератор кодов для тестов коллизий
func sequentialCodes(codes ...string) service.CodeGenerator {
	var i atomic.Int64
	return func() (string, error) {
		n := int(i.Add(1)) - 1
		if n < len(codes) {
			return codes[n], nil
		}
		return fmt.Sprintf("GEN%05d", n), nil
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
