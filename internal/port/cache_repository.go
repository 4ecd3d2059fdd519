package port

import (
	"context"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

type IdempotencyStore interface {
	// SetIdempotency claims key, returns false if it was already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a claim so a failed operation can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

// AdjustmentQueue holds barcode_count adjustments that failed after their
// registration change committed.
type AdjustmentQueue interface {
	// QueueAdjustment stores adj under adj.Key, replacing any earlier copy
	QueueAdjustment(ctx context.Context, adj domain.CounterAdjustment) error

	PendingAdjustments(ctx context.Context) ([]domain.CounterAdjustment, error)

	// AckAdjustment removes a replayed adjustment
	AckAdjustment(ctx context.Context, key string) error
}

// CounterStore is what the counter hook needs from the cache layer.
type CounterStore interface {
	IdempotencyStore
	AdjustmentQueue
}
