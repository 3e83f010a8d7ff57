package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCampaignResolver_ReusesExisting проверяет, что существующая кампания не пересоздаётся
func TestCampaignResolver_ReusesExisting(t *testing.T) {
	env := newTestEnv(t)
	existing := env.addCampaign(t, "evt-1", nil)

	campaign, err := env.resolver.Resolve(context.Background(), testClientID, "evt-1", "https://other.example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, campaign.ID)
	assert.Equal(t, existing.DestinationURL, campaign.DestinationURL)
	assert.Equal(t, 1, env.campaigns.Count())
}

// TestCampaignResolver_AutoCreate_UsesOrganizerDefaults проверяет настройки автосозданной кампании
func TestCampaignResolver_AutoCreate_UsesOrganizerDefaults(t *testing.T) {
	env := newTestEnv(t)
	organizerID := uuid.New()
	env.organizers.Add(&models.OrganizerProfile{
		UserID:                  organizerID,
		ClientID:                "org_pct",
		DefaultCommissionType:   models.CommissionPercentage,
		DefaultCommissionValue:  decimal.NewFromInt(15),
		DefaultCreditUnlockType: models.UnlockDelayed,
		DefaultCreditUnlockDays: 30,
	})

	campaign, err := env.resolver.Resolve(context.Background(), "org_pct", "evt-new", "https://tickets.example.com/new")
	require.NoError(t, err)

	assert.Equal(t, organizerID, campaign.OrganizerID)
	assert.Equal(t, "evt-new", campaign.Name)
	require.NotNil(t, campaign.ExternalEventID)
	assert.Equal(t, "evt-new", *campaign.ExternalEventID)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
	assert.Equal(t, models.CommissionPercentage, campaign.CommissionType)
	assert.True(t, decimal.NewFromInt(15).Equal(campaign.CommissionValue))
	assert.Equal(t, models.UnlockDelayed, campaign.CreditUnlockType)
	assert.Equal(t, 30, campaign.CreditUnlockDays)
	assert.True(t, campaign.RateLimitEnabled)
	assert.Equal(t, models.DefaultRateLimitPerHour, campaign.RateLimitPerHour)
	assert.Equal(t, models.IntegrationWebhookOrganization, campaign.IntegrationType)
}

// TestCampaignResolver_AutoCreate_FallbackDefaults проверяет значения по умолчанию без настроек профиля
func TestCampaignResolver_AutoCreate_FallbackDefaults(t *testing.T) {
	env := newTestEnv(t)

	campaign, err := env.resolver.Resolve(context.Background(), testClientID, "evt-2", "https://tickets.example.com/2")
	require.NoError(t, err)
	assert.Equal(t, models.CommissionFixed, campaign.CommissionType)
	assert.Equal(t, "3.00", campaign.CommissionValue.StringFixed(2))
	assert.Equal(t, models.UnlockEventBased, campaign.CreditUnlockType)
}

// TestCampaignResolver_ConcurrentAutoCreate проверяет, что гонка создаёт одну кампанию
func TestCampaignResolver_ConcurrentAutoCreate(t *testing.T) {
	env := newTestEnv(t)
	env.campaigns.CreateDelay = 5 * time.Millisecond

	const workers = 8
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := env.resolver.Resolve(context.Background(), testClientID, "evt-race", "https://tickets.example.com/race")
			errs[i] = err
			if c != nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, env.campaigns.Count())
}

// TestCampaignResolver_Errors проверяет ошибки валидации и поиска организатора
func TestCampaignResolver_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.resolver.Resolve(ctx, "org_unknown", "evt-1", "https://tickets.example.com")
	assert.ErrorIs(t, err, service.ErrClientNotFound)

	for _, raw := range []string{"ftp://tickets.example.com", "tickets.example.com/x", "https://", "::"} {
		_, err := env.resolver.Resolve(ctx, testClientID, "evt-1", raw)
		assert.ErrorIs(t, err, service.ErrInvalidTicketURL, raw)
	}
	assert.Equal(t, 0, env.campaigns.Count())

	// неизвестный клиент важнее невалидного URL
	_, err = env.resolver.Resolve(ctx, "org_unknown", "evt-1", "tickets.example.com/x")
	assert.ErrorIs(t, err, service.ErrClientNotFound)
}

// TestCampaignResolver_ExistingIgnoresTicketURL проверяет, что для существующей кампании ticket_url не проверяется
func TestCampaignResolver_ExistingIgnoresTicketURL(t *testing.T) {
	env := newTestEnv(t)
	existing := env.addCampaign(t, "evt-1", nil)

	campaign, err := env.resolver.Resolve(context.Background(), testClientID, "evt-1", "/relative/path")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, campaign.ID)
	assert.Equal(t, 1, env.campaigns.Count())
}
