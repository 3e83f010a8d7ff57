package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/redis/go-redis/v9"
)

// NotificationQueueKey список Redis с задачами уведомлений рефереров
const NotificationQueueKey = "notifications:conversions"

type NotificationQueue interface {
	Enqueue(ctx context.Context, job *models.NotificationJob) error
	// Dequeue блокируется до timeout. При пустой очереди возвращает nil, nil.
	Dequeue(ctx context.Context, timeout time.Duration) (*models.NotificationJob, error)
	Len(ctx context.Context) (int64, error)
}

type notificationQueue struct {
	redis *RedisDB
	key   string
}

func NewNotificationQueue(redis *RedisDB) NotificationQueue {
	return &notificationQueue{redis: redis, key: NotificationQueueKey}
}

func (q *notificationQueue) Enqueue(ctx context.Context, job *models.NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	if err := q.redis.Client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func (q *notificationQueue) Dequeue(ctx context.Context, timeout time.Duration) (*models.NotificationJob, error) {
	result, err := q.redis.Client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue notification: %w", err)
	}

	// BRPOP возвращает пару [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(result))
	}

	var job models.NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification job: %w", err)
	}
	return &job, nil
}

func (q *notificationQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.redis.Client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return n, nil
}
