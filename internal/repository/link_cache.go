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

var ErrCacheMiss = errors.New("cache miss")

// LinkCache кэш реферальных ссылок для редиректа /r/:code
type LinkCache interface {
	Get(ctx context.Context, code string) (*models.ContactWithCampaign, error)
	Set(ctx context.Context, code string, link *models.ContactWithCampaign, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type linkCache struct {
	redis *RedisDB
}

func NewLinkCache(redis *RedisDB) LinkCache {
	return &linkCache{redis: redis}
}

func (c *linkCache) Get(ctx context.Context, code string) (*models.ContactWithCampaign, error) {
	data, err := c.redis.Client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read link cache: %w", err)
	}

	var link models.ContactWithCampaign
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached link: %w", err)
	}
	return &link, nil
}

func (c *linkCache) Set(ctx context.Context, code string, link *models.ContactWithCampaign, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}
	return c.redis.Client.Set(ctx, c.key(code), data, ttl).Err()
}

func (c *linkCache) Delete(ctx context.Context, code string) error {
	return c.redis.Client.Del(ctx, c.key(code)).Err()
}

func (c *linkCache) key(code string) string {
	return "link:" + code
}
