package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestSetIdempotency_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, idempotencyKeyPrefix+"test-idem-key")

	// First call should succeed
	ok, err := adapter.SetIdempotency(ctx, "test-idem-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first call to succeed")
	}

	// Second call should fail (key exists)
	ok, err = adapter.SetIdempotency(ctx, "test-idem-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected second call to fail")
	}

	ttl := client.TTL(ctx, idempotencyKeyPrefix+"test-idem-key").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within 1m, got %v", ttl)
	}
}

func TestReleaseIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	client.Del(ctx, idempotencyKeyPrefix+"release-key")

	if ok, _ := adapter.SetIdempotency(ctx, "release-key"); !ok {
		t.Fatal("expected claim to succeed")
	}
	if err := adapter.ReleaseIdempotency(ctx, "release-key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := adapter.SetIdempotency(ctx, "release-key"); !ok {
		t.Error("expected claim to succeed after release")
	}
}

func TestSetIdempotency_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, 0)

	// Setup
	client.Del(ctx, idempotencyKeyPrefix+"concurrent-idem-key")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.SetIdempotency(ctx, "concurrent-idem-key")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}

func TestAdjustmentQueue(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	client.Del(ctx, pendingAdjustmentsKey)
	defer client.Del(ctx, pendingAdjustmentsKey)

	inc := domain.CounterAdjustment{Key: "inc:r1", Kind: domain.EntityKindItem, ID: "item-1", Delta: 1}
	dec := domain.CounterAdjustment{Key: "dec:r2", Kind: domain.EntityKindBaseItem, ID: "base-1", Delta: -1}

	for _, adj := range []domain.CounterAdjustment{inc, dec, inc} {
		if err := adapter.QueueAdjustment(ctx, adj); err != nil {
			t.Fatalf("queue failed: %v", err)
		}
	}

	pending, err := adapter.PendingAdjustments(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending adjustments, got %d", len(pending))
	}

	if err := adapter.AckAdjustment(ctx, inc.Key); err != nil {
		t.Fatalf("ack failed: %v", err)
	}
	pending, err = adapter.PendingAdjustments(ctx)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0] != dec {
		t.Errorf("expected only %+v pending, got %+v", dec, pending)
	}
}
