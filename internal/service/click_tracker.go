package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/SergeiKhy/referral-service/internal/metrics"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ClickOutcomeKind string

const (
	ClickRedirect ClickOutcomeKind = "redirect"
	ClickExpired  ClickOutcomeKind = "expired"
)

type ClickOutcome struct {
	Kind        ClickOutcomeKind
	RedirectURL string
	Code        string
}

// ClickTracker обрабатывает переходы по реферальным ссылкам
type ClickTracker interface {
	Track(ctx context.Context, code string, meta models.ClickMeta) (*ClickOutcome, error)
	// TrackPageView записывает просмотр страницы с пикселя сайта организатора
	TrackPageView(ctx context.Context, code string, meta models.ClickMeta) error
}

type clickTracker struct {
	contactRepo repository.ContactRepository
	clickRepo   repository.ClickRepository
	cache       repository.LinkCache
	cacheTTL    time.Duration
	baseURL     string
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewClickTracker(
	contactRepo repository.ContactRepository,
	clickRepo repository.ClickRepository,
	cache repository.LinkCache,
	cacheTTL time.Duration,
	baseURL string,
	m *metrics.Metrics,
	logger *zap.Logger,
) ClickTracker {
	return &clickTracker{
		contactRepo: contactRepo,
		clickRepo:   clickRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		baseURL:     strings.TrimRight(baseURL, "/"),
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// lookup ищет ссылку сначала в кэше, затем в БД.
// Статус кампании в кэше может отставать не больше чем на cacheTTL.
func (t *clickTracker) lookup(ctx context.Context, code string) (*models.ContactWithCampaign, error) {
	useCache := t.cache != nil && t.cacheTTL > 0

	if useCache {
		cc, err := t.cache.Get(ctx, code)
		if err == nil {
			return cc, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			t.logger.Warn("Link cache read failed", zap.String("code", code), zap.Error(err))
		}
	}

	cc, err := t.contactRepo.GetByCodeWithCampaign(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, processingError("lookup link", err)
	}

	if useCache {
		if err := t.cache.Set(ctx, code, cc, t.cacheTTL); err != nil {
			t.logger.Warn("Link cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return cc, nil
}

func (t *clickTracker) Track(ctx context.Context, code string, meta models.ClickMeta) (*ClickOutcome, error) {
	cc, err := t.lookup(ctx, code)
	if err != nil {
		t.metrics.IncClick("not_found")
		return nil, err
	}
	campaign := &cc.Campaign

	if campaign.Status != models.CampaignStatusActive {
		t.metrics.IncClick("unavailable")
		return nil, ErrCampaignArchived
	}

	now := t.now()
	if expired, date := t.isExpired(campaign, now); expired {
		t.metrics.IncClick("expired")
		return &ClickOutcome{
			Kind:        ClickExpired,
			RedirectURL: t.expiredURL(campaign, date),
			Code:        code,
		}, nil
	}

	destination, err := withRefParam(campaign.DestinationURL, code)
	if err != nil {
		return nil, processingError("build destination", err)
	}

	meta = meta.Normalized()
	click := &models.Click{
		ID:          uuid.New(),
		ContactID:   cc.Contact.ID,
		CampaignID:  campaign.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		ReferrerURL: meta.ReferrerURL,
		ClickedAt:   now,
	}
	// неудачная запись клика не мешает редиректу
	if err := t.clickRepo.Record(ctx, click); err != nil {
		t.logger.Error("Failed to record click",
			zap.String("code", code),
			zap.Error(err),
		)
	}

	t.metrics.IncClick("redirect")
	return &ClickOutcome{Kind: ClickRedirect, RedirectURL: destination, Code: code}, nil
}

func (t *clickTracker) TrackPageView(ctx context.Context, code string, meta models.ClickMeta) error {
	cc, err := t.lookup(ctx, code)
	if err != nil {
		return err
	}

	meta = meta.Normalized()
	click := &models.Click{
		ID:          uuid.New(),
		ContactID:   cc.Contact.ID,
		CampaignID:  cc.Contact.CampaignID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		ReferrerURL: meta.ReferrerURL,
		ClickedAt:   t.now(),
	}
	if err := t.clickRepo.Record(ctx, click); err != nil {
		return processingError("record page view", err)
	}

	t.metrics.IncClick("page_view")
	return nil
}

// isExpired возвращает признак истечения и дату, которую показать на странице.
// event_date сравнивается по календарной дате UTC.
func (t *clickTracker) isExpired(c *models.Campaign, now time.Time) (bool, *time.Time) {
	if c.EventDate != nil && dateUTC(*c.EventDate).Before(dateUTC(now)) {
		return true, c.EventDate
	}
	if c.PromotionEndDate != nil && now.After(*c.PromotionEndDate) {
		return true, c.PromotionEndDate
	}
	return false, nil
}

func (t *clickTracker) expiredURL(c *models.Campaign, date *time.Time) string {
	params := url.Values{}
	params.Set("campaign", c.Name)
	if date != nil {
		params.Set("date", date.UTC().Format("2006-01-02"))
	}
	params.Set("destination", c.DestinationURL)
	return t.baseURL + "/campaign-expired?" + params.Encode()
}

func dateUTC(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withRefParam добавляет ref=<code>, сохраняя существующие параметры
func withRefParam(destination, code string) (string, error) {
	u, err := url.Parse(destination)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
