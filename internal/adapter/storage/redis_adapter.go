package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	itemKeyPrefix     = "catalog:item:"
	itemTTL           = 5 * time.Minute
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter caches catalog items and records idempotency keys. Item
// reads and writes go through a circuit breaker so a dead Redis stops
// costing a round trip on every catalog read; idempotency calls bypass it
// because their answer cannot be skipped.
type RedisAdapter struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker[any]
	logger *zap.Logger
}

func NewRedisAdapter(client *redis.Client, logger *zap.Logger) *RedisAdapter {
	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RedisAdapter{
		client: client,
		cb:     gobreaker.NewCircuitBreaker[any](settings),
		logger: logger,
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (r *RedisAdapter) GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	return execute(r.cb, func() (*domain.CatalogItem, error) {
		raw, err := r.client.Get(ctx, itemKeyPrefix+itemID).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var item domain.CatalogItem
		if err := json.Unmarshal(raw, &item); err != nil {
			r.logger.Warn("dropping unreadable cache entry", zap.String("item_id", itemID), zap.Error(err))
			r.client.Del(ctx, itemKeyPrefix+itemID)
			return nil, nil
		}
		return &item, nil
	})
}

func (r *RedisAdapter) SetItem(ctx context.Context, item domain.CatalogItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode catalog item: %w", err)
	}

	_, err = execute(r.cb, func() (struct{}, error) {
		return struct{}{}, r.client.Set(ctx, itemKeyPrefix+item.ID, raw, itemTTL).Err()
	})
	return err
}

func (r *RedisAdapter) InvalidateItem(ctx context.Context, itemID string) error {
	_, err := execute(r.cb, func() (struct{}, error) {
		return struct{}{}, r.client.Del(ctx, itemKeyPrefix+itemID).Err()
	})
	return err
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
