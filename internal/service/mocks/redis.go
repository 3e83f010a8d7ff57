package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/repository"
)

// MockNotificationQueue implements repository.NotificationQueue on a buffered channel
type MockNotificationQueue struct {
	jobs       chan *models.NotificationJob
	mu         sync.Mutex
	enqueued   int
	EnqueueErr error
}

func NewMockNotificationQueue() *MockNotificationQueue {
	return &MockNotificationQueue{jobs: make(chan *models.NotificationJob, 100)}
}

func (q *MockNotificationQueue) Enqueue(ctx context.Context, job *models.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	cp := *job
	q.jobs <- &cp
	q.enqueued++
	return nil
}

func (q *MockNotificationQueue) Dequeue(ctx context.Context, timeout time.Duration) (*models.NotificationJob, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case job := <-q.jobs:
		return job, nil
	}
}

func (q *MockNotificationQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

// Enqueued сколько задач было поставлено за всё время
func (q *MockNotificationQueue) Enqueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued
}

// MockLinkCache implements repository.LinkCache in memory
type MockLinkCache struct {
	mu    sync.RWMutex
	links map[string]models.ContactWithCampaign
	Hits  int
}

func NewMockLinkCache() *MockLinkCache {
	return &MockLinkCache{links: make(map[string]models.ContactWithCampaign)}
}

func (c *MockLinkCache) Get(ctx context.Context, code string) (*models.ContactWithCampaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	link, ok := c.links[code]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	c.Hits++
	return &link, nil
}

func (c *MockLinkCache) Set(ctx context.Context, code string, link *models.ContactWithCampaign, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[code] = *link
	return nil
}

func (c *MockLinkCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.links, code)
	return nil
}
