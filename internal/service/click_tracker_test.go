package service_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClickTracker(env *testEnv, now time.Time) service.ClickTracker {
	tracker := service.NewClickTracker(env.contacts, env.clicks, env.cache, time.Minute, testBaseURL, env.metrics, env.logger)
	service.SetClickTrackerClock(tracker, func() time.Time { return now })
	return tracker
}

// TestClickTracker_Redirect_RecordsClick проверяет редирект с параметром ref
func TestClickTracker_Redirect_RecordsClick(t *testing.T) {
	env := newTestEnv(t)
	campaign := env.addCampaign(t, "evt-1", func(c *models.Campaign) {
		c.DestinationURL = "https://tickets.example.com/summer?utm_source=mail"
	})
	contact := env.addContact(t, campaign, "alice@example.com", "ALICE001")
	tracker := newClickTracker(env, time.Now())

	outcome, err := tracker.Track(context.Background(), "ALICE001", models.ClickMeta{UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)
	assert.Equal(t, service.ClickRedirect, outcome.Kind)

	u, err := url.Parse(outcome.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "tickets.example.com", u.Host)
	assert.Equal(t, "ALICE001", u.Query().Get("ref"))
	assert.Equal(t, "mail", u.Query().Get("utm_source"))

	clicks := env.clicks.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, contact.ID, clicks[0].ContactID)
	assert.Equal(t, campaign.ID, clicks[0].CampaignID)
	assert.Equal(t, "Mozilla/5.0", clicks[0].UserAgent)
	assert.Equal(t, models.NotAvailable, clicks[0].IPAddress)
	assert.Equal(t, models.NotAvailable, clicks[0].ReferrerURL)

	// клики не дедуплицируются
	_, err = tracker.Track(context.Background(), "ALICE001", models.ClickMeta{})
	require.NoError(t, err)
	assert.Len(t, env.clicks.Clicks(), 2)
	assert.Equal(t, 1, env.cache.Hits)
}

// TestClickTracker_ExpiredEvent проверяет редирект на страницу истёкшей кампании без записи клика
func TestClickTracker_ExpiredEvent(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	eventDate := time.Date(2026, 6, 9, 20, 0, 0, 0, time.UTC)
	campaign := env.addCampaign(t, "evt-1", func(c *models.Campaign) { c.EventDate = &eventDate })
	env.addContact(t, campaign, "alice@example.com", "ALICE001")

	outcome, err := newClickTracker(env, now).Track(context.Background(), "ALICE001", models.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, service.ClickExpired, outcome.Kind)

	u, err := url.Parse(outcome.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "/campaign-expired", u.Path)
	assert.Equal(t, "Summer Fest", u.Query().Get("campaign"))
	assert.Equal(t, "2026-06-09", u.Query().Get("date"))
	assert.Equal(t, campaign.DestinationURL, u.Query().Get("destination"))

	assert.Empty(t, env.clicks.Clicks())
}

// TestClickTracker_EventToday_NotExpired проверяет сравнение по календарной дате
func TestClickTracker_EventToday_NotExpired(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 6, 10, 23, 0, 0, 0, time.UTC)
	eventDate := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	campaign := env.addCampaign(t, "evt-1", func(c *models.Campaign) { c.EventDate = &eventDate })
	env.addContact(t, campaign, "alice@example.com", "ALICE001")

	outcome, err := newClickTracker(env, now).Track(context.Background(), "ALICE001", models.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, service.ClickRedirect, outcome.Kind)
}

// TestClickTracker_PromotionEnded проверяет истечение по promotion_end_date
func TestClickTracker_PromotionEnded(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	ended := now.Add(-time.Minute)
	campaign := env.addCampaign(t, "evt-1", func(c *models.Campaign) { c.PromotionEndDate = &ended })
	env.addContact(t, campaign, "alice@example.com", "ALICE001")

	outcome, err := newClickTracker(env, now).Track(context.Background(), "ALICE001", models.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, service.ClickExpired, outcome.Kind)
	assert.Empty(t, env.clicks.Clicks())
}

// TestClickTracker_Unavailable проверяет архивные кампании, черновики и неизвестные коды
func TestClickTracker_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	archived := env.addCampaign(t, "evt-archived", func(c *models.Campaign) { c.Status = models.CampaignStatusArchived })
	draft := env.addCampaign(t, "evt-draft", func(c *models.Campaign) { c.Status = models.CampaignStatusDraft })
	env.addContact(t, archived, "a@example.com", "ARCH0001")
	env.addContact(t, draft, "b@example.com", "DRAFT001")
	tracker := newClickTracker(env, time.Now())

	_, err := tracker.Track(context.Background(), "ARCH0001", models.ClickMeta{})
	assert.ErrorIs(t, err, service.ErrCampaignArchived)

	_, err = tracker.Track(context.Background(), "DRAFT001", models.ClickMeta{})
	assert.ErrorIs(t, err, service.ErrCampaignArchived)

	_, err = tracker.Track(context.Background(), "NOPE0000", models.ClickMeta{})
	assert.ErrorIs(t, err, service.ErrContactNotFound)

	assert.Empty(t, env.clicks.Clicks())
}

// TestClickTracker_RecordFailure_StillRedirects проверяет, что ошибка записи клика не мешает редиректу
func TestClickTracker_RecordFailure_StillRedirects(t *testing.T) {
	env := newTestEnv(t)
	campaign := env.addCampaign(t, "evt-1", nil)
	env.addContact(t, campaign, "alice@example.com", "ALICE001")
	env.clicks.Err = errors.New("insert failed")

	outcome, err := newClickTracker(env, time.Now()).Track(context.Background(), "ALICE001", models.ClickMeta{})
	require.NoError(t, err)
	assert.Equal(t, service.ClickRedirect, outcome.Kind)
}

// TestClickTracker_TrackPageView проверяет запись просмотра страницы с пикселя
func TestClickTracker_TrackPageView(t *testing.T) {
	env := newTestEnv(t)
	campaign := env.addCampaign(t, "evt-1", nil)
	env.addContact(t, campaign, "alice@example.com", "ALICE001")
	tracker := newClickTracker(env, time.Now())

	err := tracker.TrackPageView(context.Background(), "ALICE001", models.ClickMeta{ReferrerURL: "https://fest.example.com/tickets"})
	require.NoError(t, err)

	clicks := env.clicks.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, "https://fest.example.com/tickets", clicks[0].ReferrerURL)

	err = tracker.TrackPageView(context.Background(), "NOPE0000", models.ClickMeta{})
	assert.ErrorIs(t, err, service.ErrContactNotFound)
}
