package redis_adapter

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultAnalyticsTTL = 60 * time.Second
	analyticsKeyPrefix  = "listing:analytics"
)

// kv - используемая часть redis.Cmdable
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// AnalyticsCache хранит готовые сводки аналитики с коротким TTL
type AnalyticsCache struct {
	client kv
	ttl    time.Duration
}

func NewAnalyticsCache(client kv, ttl time.Duration) *AnalyticsCache {
	if ttl <= 0 {
		ttl = DefaultAnalyticsTTL
	}
	return &AnalyticsCache{client: client, ttl: ttl}
}

// analyticsKey: префикс + md5 от параметров запроса
func analyticsKey(propertyID uuid.UUID, window domain.AnalyticsWindow) string {
	raw := fmt.Sprintf("property_id=%s:window=%s", propertyID, window)
	hash := md5.Sum([]byte(raw))
	return analyticsKeyPrefix + ":" + hex.EncodeToString(hash[:])
}

func (c *AnalyticsCache) Get(ctx context.Context, propertyID uuid.UUID, window domain.AnalyticsWindow) (*domain.AnalyticsSummary, bool, error) {
	data, err := c.client.Get(ctx, analyticsKey(propertyID, window)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get analytics: %w", err)
	}

	var summary domain.AnalyticsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("decode cached analytics: %w", err)
	}
	return &summary, true, nil
}

func (c *AnalyticsCache) Set(ctx context.Context, summary *domain.AnalyticsSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode analytics: %w", err)
	}
	if err := c.client.Set(ctx, analyticsKey(summary.PropertyID, summary.Window), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set analytics: %w", err)
	}
	return nil
}
