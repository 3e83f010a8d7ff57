package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
	"github.com/google/uuid"
)

// MockOrganizerRepository implements repository.OrganizerRepository for testing
type MockOrganizerRepository struct {
	mu         sync.RWMutex
	profiles   map[uuid.UUID]*models.OrganizerProfile
	UpsertCall int
}

func NewMockOrganizerRepository() *MockOrganizerRepository {
	return &MockOrganizerRepository{profiles: make(map[uuid.UUID]*models.OrganizerProfile)}
}

// Add сохраняет профиль как есть, без проверки уникальности
func (m *MockOrganizerRepository) Add(p *models.OrganizerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.profiles[p.UserID] = &cp
}

func (m *MockOrganizerRepository) GetByClientID(ctx context.Context, clientID string) (*models.OrganizerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.ClientID == clientID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrOrganizerNotFound
}

func (m *MockOrganizerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.OrganizerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrOrganizerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockOrganizerRepository) Upsert(ctx context.Context, p *models.OrganizerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCall++

	for userID, other := range m.profiles {
		if userID != p.UserID && other.ClientID == p.ClientID {
			return repository.ErrDuplicateClient
		}
	}

	now := time.Now()
	if existing, ok := m.profiles[p.UserID]; ok {
		// ON CONFLICT (user_id) не меняет id и client_id
		p.ID = existing.ID
		p.ClientID = existing.ClientID
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

// MockCampaignRepository implements repository.CampaignRepository for testing.
// Эмулирует уникальный индекс (organizer_id, external_event_id).
type MockCampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]*models.Campaign
	// CreateDelay задержка внутри Create для тестов гонок
	CreateDelay time.Duration
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{campaigns: make(map[uuid.UUID]*models.Campaign)}
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	if m.CreateDelay > 0 {
		time.Sleep(m.CreateDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ExternalEventID != nil {
		for _, other := range m.campaigns {
			if other.OrganizerID == c.OrganizerID && other.ExternalEventID != nil && *other.ExternalEventID == *c.ExternalEventID {
				return repository.ErrDuplicateMapping
			}
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, repository.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepository) GetByExternalEventID(ctx context.Context, organizerID uuid.UUID, externalEventID string) (*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.campaigns {
		if c.OrganizerID == organizerID && c.ExternalEventID != nil && *c.ExternalEventID == externalEventID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCampaignNotFound
}

func (m *MockCampaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok || c.Status != from {
		return repository.ErrStatusConflict
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return nil
}

func (m *MockCampaignRepository) ListDueEventBased(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []uuid.UUID
	for _, c := range m.campaigns {
		if c.CreditUnlockType == models.UnlockEventBased && c.EventEndDate != nil && !c.EventEndDate.After(now) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *MockCampaignRepository) ListDelayed(ctx context.Context) ([]models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Campaign
	for _, c := range m.campaigns {
		if c.CreditUnlockType == models.UnlockDelayed && c.CreditUnlockDays > 0 {
			out = append(out, *c)
		}
	}
	return out, nil
}

// Count количество кампаний в хранилище
func (m *MockCampaignRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.campaigns)
}

// MockContactRepository implements repository.ContactRepository for testing.
// Эмулирует уникальность (campaign_id, email) и unique_code.
type MockContactRepository struct {
	mu        sync.RWMutex
	contacts  map[uuid.UUID]*models.Contact
	campaigns *MockCampaignRepository
	// CreateDelay задержка внутри Create для тестов гонок
	CreateDelay time.Duration
}

func NewMockContactRepository(campaigns *MockCampaignRepository) *MockContactRepository {
	return &MockContactRepository{
		contacts:  make(map[uuid.UUID]*models.Contact),
		campaigns: campaigns,
	}
}

func (m *MockContactRepository) Create(ctx context.Context, c *models.Contact) error {
	if m.CreateDelay > 0 {
		time.Sleep(m.CreateDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.contacts {
		if other.CampaignID == c.CampaignID && other.Email == c.Email {
			return repository.ErrDuplicateEmail
		}
		if other.UniqueCode == c.UniqueCode {
			return repository.ErrCodeExists
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()

	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *MockContactRepository) find(match func(*models.Contact) bool) (*models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.contacts {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrContactNotFound
}

func (m *MockContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	return m.find(func(c *models.Contact) bool { return c.ID == id })
}

func (m *MockContactRepository) GetByEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Contact, error) {
	return m.find(func(c *models.Contact) bool { return c.CampaignID == campaignID && c.Email == email })
}

func (m *MockContactRepository) GetByCode(ctx context.Context, campaignID uuid.UUID, code string) (*models.Contact, error) {
	return m.find(func(c *models.Contact) bool { return c.CampaignID == campaignID && c.UniqueCode == code })
}

func (m *MockContactRepository) GetByCodeWithCampaign(ctx context.Context, code string) (*models.ContactWithCampaign, error) {
	contact, err := m.find(func(c *models.Contact) bool { return c.UniqueCode == code })
	if err != nil {
		return nil, err
	}
	campaign, err := m.campaigns.GetByID(ctx, contact.CampaignID)
	if err != nil {
		return nil, repository.ErrContactNotFound
	}
	return &models.ContactWithCampaign{Contact: *contact, Campaign: *campaign}, nil
}

func (m *MockContactRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contacts[id]
	if !ok {
		return repository.ErrContactNotFound
	}
	c.EmailSentAt = &at
	return nil
}

// ByCampaign контакты кампании
func (m *MockContactRepository) ByCampaign(campaignID uuid.UUID) []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Contact
	for _, c := range m.contacts {
		if c.CampaignID == campaignID {
			out = append(out, *c)
		}
	}
	return out
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks []models.Click
	Err    error
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{}
}

func (m *MockClickRepository) Record(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if click.ID == uuid.Nil {
		click.ID = uuid.New()
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	m.clicks = append(m.clicks, *click)
	return nil
}

func (m *MockClickRepository) Clicks() []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Click(nil), m.clicks...)
}

// MockConversionRepository implements repository.ConversionRepository for testing.
// Эмулирует частичные уникальные индексы по order_id и buyer_email.
type MockConversionRepository struct {
	mu          sync.RWMutex
	conversions map[uuid.UUID]*models.Conversion
}

func NewMockConversionRepository() *MockConversionRepository {
	return &MockConversionRepository{conversions: make(map[uuid.UUID]*models.Conversion)}
}

func (m *MockConversionRepository) Create(ctx context.Context, c *models.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.conversions {
		if other.CampaignID != c.CampaignID {
			continue
		}
		if c.OrderID != nil && other.OrderID != nil && *other.OrderID == *c.OrderID {
			return repository.ErrDuplicateOrder
		}
		if c.BuyerEmail != nil && other.BuyerEmail != nil && *other.BuyerEmail == *c.BuyerEmail {
			return repository.ErrDuplicateBuyer
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.ConvertedAt = time.Now()

	cp := *c
	m.conversions[c.ID] = &cp
	return nil
}

func (m *MockConversionRepository) find(match func(*models.Conversion) bool) (*models.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.conversions {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrConversionNotFound
}

func (m *MockConversionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	return m.find(func(c *models.Conversion) bool { return c.ID == id })
}

func (m *MockConversionRepository) GetByOrderID(ctx context.Context, campaignID uuid.UUID, orderID string) (*models.Conversion, error) {
	return m.find(func(c *models.Conversion) bool {
		return c.CampaignID == campaignID && c.OrderID != nil && *c.OrderID == orderID
	})
}

func (m *MockConversionRepository) GetByBuyerEmail(ctx context.Context, campaignID uuid.UUID, email string) (*models.Conversion, error) {
	return m.find(func(c *models.Conversion) bool {
		if c.CampaignID != campaignID {
			return false
		}
		return (c.BuyerEmail != nil && *c.BuyerEmail == email) ||
			(c.ReferredCustomerEmail != nil && *c.ReferredCustomerEmail == email)
	})
}

func (m *MockConversionRepository) CountByReferrer(ctx context.Context, contactID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.conversions {
		if c.ReferrerContactID == contactID {
			n++
		}
	}
	return n, nil
}

func (m *MockConversionRepository) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversions[id]
	if !ok {
		return repository.ErrConversionNotFound
	}
	c.NotificationSent = true
	return nil
}

// All все конверсии в хранилище
func (m *MockConversionRepository) All() []models.Conversion {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Conversion, 0, len(m.conversions))
	for _, c := range m.conversions {
		out = append(out, *c)
	}
	return out
}

// MockCreditRepository implements repository.CreditRepository for testing
type MockCreditRepository struct {
	mu      sync.RWMutex
	credits map[uuid.UUID]*models.Credit
}

func NewMockCreditRepository() *MockCreditRepository {
	return &MockCreditRepository{credits: make(map[uuid.UUID]*models.Credit)}
}

func (m *MockCreditRepository) Create(ctx context.Context, c *models.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.credits {
		if other.ConversionID == c.ConversionID {
			return repository.ErrDuplicateCredit
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	cp := *c
	m.credits[c.ID] = &cp
	return nil
}

func (m *MockCreditRepository) unlock(now time.Time, match func(*models.Credit) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.credits {
		if c.Status == models.CreditPending && match(c) {
			unlockedAt := now
			c.Status = models.CreditAvailable
			c.UnlockedAt = &unlockedAt
			c.UpdatedAt = now
			n++
		}
	}
	return n
}

func (m *MockCreditRepository) UnlockPendingForCampaigns(ctx context.Context, campaignIDs []uuid.UUID, now time.Time) (int64, error) {
	set := make(map[uuid.UUID]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		set[id] = struct{}{}
	}
	return m.unlock(now, func(c *models.Credit) bool {
		_, ok := set[c.CampaignID]
		return ok
	}), nil
}

func (m *MockCreditRepository) UnlockPendingCreatedBefore(ctx context.Context, campaignID uuid.UUID, cutoff, now time.Time) (int64, error) {
	return m.unlock(now, func(c *models.Credit) bool {
		return c.CampaignID == campaignID && !c.CreatedAt.After(cutoff)
	}), nil
}

// All все кредиты в хранилище
func (m *MockCreditRepository) All() []models.Credit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Credit, 0, len(m.credits))
	for _, c := range m.credits {
		out = append(out, *c)
	}
	return out
}

// MockWebhookLogRepository implements repository.WebhookLogRepository for testing
type MockWebhookLogRepository struct {
	mu   sync.RWMutex
	logs []models.WebhookLog
	// Now время created_at для новых записей
	Now       func() time.Time
	InsertErr error
}

func NewMockWebhookLogRepository() *MockWebhookLogRepository {
	return &MockWebhookLogRepository{Now: time.Now}
}

func (m *MockWebhookLogRepository) Insert(ctx context.Context, l *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = m.Now()
	}
	m.logs = append(m.logs, *l)
	return nil
}

func (m *MockWebhookLogRepository) CountSince(ctx context.Context, campaignID uuid.UUID, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, l := range m.logs {
		if l.CampaignID == campaignID && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockWebhookLogRepository) RecentStatuses(ctx context.Context, campaignID uuid.UUID, limit int) ([]int, error) {
	m.mu.RLock()
	var logs []models.WebhookLog
	for _, l := range m.logs {
		if l.CampaignID == campaignID {
			logs = append(logs, l)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })

	statuses := make([]int, 0, limit)
	for i := 0; i < len(logs) && i < limit; i++ {
		statuses = append(statuses, logs[i].ResponseStatus)
	}
	return statuses, nil
}

// Logs копия журнала
func (m *MockWebhookLogRepository) Logs() []models.WebhookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.WebhookLog(nil), m.logs...)
}

