package service_test

import (
	"context"
	"testing"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignService(env *testEnv) service.CampaignService {
	return service.NewCampaignService(env.campaigns, env.organizers, env.logger)
}

// TestCampaignService_Create_Draft проверяет создание черновика с настройками организатора
func TestCampaignService_Create_Draft(t *testing.T) {
	env := newTestEnv(t)
	eventID := "evt-manual"

	campaign, err := newCampaignService(env).Create(context.Background(), &models.CreateCampaignInput{
		OrganizerID:     env.organizerID,
		Name:            "  Autumn Gala ",
		ExternalEventID: &eventID,
		DestinationURL:  "https://tickets.example.com/gala",
	})
	require.NoError(t, err)

	assert.Equal(t, "Autumn Gala", campaign.Name)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Equal(t, models.CommissionFixed, campaign.CommissionType)
	assert.Equal(t, "3.00", campaign.CommissionValue.StringFixed(2))
	assert.Equal(t, models.IntegrationManual, campaign.IntegrationType)
	assert.Equal(t, models.DefaultRateLimitPerHour, campaign.RateLimitPerHour)
}

// TestCampaignService_Create_Overrides проверяет явные настройки комиссии
func TestCampaignService_Create_Overrides(t *testing.T) {
	env := newTestEnv(t)
	pct := models.CommissionPercentage
	value := decimal.NewFromInt(12)
	unlock := models.UnlockDelayed
	days := 14

	campaign, err := newCampaignService(env).Create(context.Background(), &models.CreateCampaignInput{
		OrganizerID:      env.organizerID,
		Name:             "Gala",
		DestinationURL:   "https://tickets.example.com/gala",
		CommissionType:   &pct,
		CommissionValue:  &value,
		CreditUnlockType: &unlock,
		CreditUnlockDays: &days,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPercentage, campaign.CommissionType)
	assert.Equal(t, models.UnlockDelayed, campaign.CreditUnlockType)
	assert.Equal(t, 14, campaign.CreditUnlockDays)
	assert.Nil(t, campaign.ExternalEventID)
}

// TestCampaignService_Create_Validation проверяет отклонение некорректных настроек
func TestCampaignService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := newCampaignService(env)
	delayed := models.UnlockDelayed
	negative := decimal.NewFromInt(-1)

	cases := map[string]*models.CreateCampaignInput{
		"relative destination": {Name: "Gala", DestinationURL: "/gala"},
		"delayed without days": {Name: "Gala", DestinationURL: "https://t.example.com", CreditUnlockType: &delayed},
		"negative commission":  {Name: "Gala", DestinationURL: "https://t.example.com", CommissionValue: &negative},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			in.OrganizerID = env.organizerID
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, service.ErrInvalidCampaign)
		})
	}

	_, err := svc.Create(context.Background(), &models.CreateCampaignInput{OrganizerID: env.organizerID, DestinationURL: "https://t.example.com"})
	assert.ErrorIs(t, err, service.ErrMissingField)
}

// TestCampaignService_Create_DuplicateMapping проверяет конфликт external_event_id
func TestCampaignService_Create_DuplicateMapping(t *testing.T) {
	env := newTestEnv(t)
	env.addCampaign(t, "evt-1", nil)
	eventID := "evt-1"

	_, err := newCampaignService(env).Create(context.Background(), &models.CreateCampaignInput{
		OrganizerID:     env.organizerID,
		Name:            "Copy",
		ExternalEventID: &eventID,
		DestinationURL:  "https://tickets.example.com/copy",
	})
	require.ErrorIs(t, err, service.ErrDuplicateMapping)

	status, _ := service.Classify(err)
	assert.Equal(t, 409, status)
}

// TestCampaignService_Lifecycle проверяет переходы draft -> active -> archived -> active
func TestCampaignService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newCampaignService(env)
	ctx := context.Background()
	campaign := env.addCampaign(t, "evt-1", func(c *models.Campaign) { c.Status = models.CampaignStatusDraft })

	_, err := svc.Archive(ctx, env.organizerID, campaign.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	got, err := svc.Activate(ctx, env.organizerID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, got.Status)

	got, err = svc.Archive(ctx, env.organizerID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusArchived, got.Status)

	got, err = svc.Unarchive(ctx, env.organizerID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, got.Status)

	stored, err := env.campaigns.GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, stored.Status)
}

// TestCampaignService_OtherOrganizer проверяет, что чужая кампания не видна
func TestCampaignService_OtherOrganizer(t *testing.T) {
	env := newTestEnv(t)
	campaign := env.addCampaign(t, "evt-1", nil)

	_, err := newCampaignService(env).Get(context.Background(), uuid.New(), campaign.ID)
	assert.ErrorIs(t, err, service.ErrCampaignNotFound)

	_, err = newCampaignService(env).Archive(context.Background(), uuid.New(), campaign.ID)
	assert.ErrorIs(t, err, service.ErrCampaignNotFound)
}
