package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

const (
	idempotencyKeyPrefix     = "idempotency:"
	pendingAdjustmentsKey    = "barcode_count:pending"
	defaultIdempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAdapter keeps idempotency claims for ttl; a non-positive ttl uses
// 24h.
func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotencyKeyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// QueueAdjustment keeps pending adjustments in one hash keyed by adjustment
// key, so queueing the same adjustment twice leaves a single entry.
func (r *RedisAdapter) QueueAdjustment(ctx context.Context, adj domain.CounterAdjustment) error {
	data, err := json.Marshal(adj)
	if err != nil {
		return fmt.Errorf("encode adjustment: %w", err)
	}
	return r.client.HSet(ctx, pendingAdjustmentsKey, adj.Key, data).Err()
}

func (r *RedisAdapter) PendingAdjustments(ctx context.Context) ([]domain.CounterAdjustment, error) {
	entries, err := r.client.HGetAll(ctx, pendingAdjustmentsKey).Result()
	if err != nil {
		return nil, err
	}

	pending := make([]domain.CounterAdjustment, 0, len(entries))
	for key, data := range entries {
		var adj domain.CounterAdjustment
		if err := json.Unmarshal([]byte(data), &adj); err != nil {
			return nil, fmt.Errorf("decode adjustment %s: %w", key, err)
		}
		pending = append(pending, adj)
	}
	return pending, nil
}

func (r *RedisAdapter) AckAdjustment(ctx context.Context, key string) error {
	return r.client.HDel(ctx, pendingAdjustmentsKey, key).Err()
}
