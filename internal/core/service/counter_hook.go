package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/logger"
	"github.com/rl1809/barcode-registry/internal/port"
)

const (
	counterOpIncrement = "inc"
	counterOpDecrement = "dec"
)

// CounterHook asks the entity store to adjust barcode_count after a
// registration change has committed. Each adjustment claims an idempotency
// key first so replaying the same hook never double counts. An adjustment
// that fails is queued and applied later by Replay.
type CounterHook struct {
	entities port.EntityStore
	store    port.CounterStore
	log      *logger.Logger
}

func NewCounterHook(entities port.EntityStore, store port.CounterStore, log *logger.Logger) *CounterHook {
	return &CounterHook{entities: entities, store: store, log: log.With("component", "CounterHook")}
}

func (h *CounterHook) AfterCreate(ctx context.Context, reg domain.BarcodeRegistration) error {
	return h.adjust(ctx, counterOpIncrement, reg, reg.Ref(), 1)
}

func (h *CounterHook) AfterDestroy(ctx context.Context, reg domain.BarcodeRegistration) error {
	return h.adjust(ctx, counterOpDecrement, reg, reg.Ref(), -1)
}

// AfterRelink moves one count from the previous entity to the current one.
func (h *CounterHook) AfterRelink(ctx context.Context, previous, current domain.BarcodeRegistration) error {
	if previous.Ref() == current.Ref() {
		return nil
	}
	// keyed by the new version so both halves belong to the same update
	return errors.Join(
		h.adjust(ctx, counterOpDecrement, current, previous.Ref(), -1),
		h.adjust(ctx, counterOpIncrement, current, current.Ref(), 1),
	)
}

// Replay applies queued adjustments and returns how many are still pending.
// Adjustments for entities that no longer exist are dropped.
func (h *CounterHook) Replay(ctx context.Context) (int, error) {
	pending, err := h.store.PendingAdjustments(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending counter adjustments: %w", err)
	}

	remaining := 0
	for _, adj := range pending {
		err := h.apply(ctx, adj)
		switch {
		case err == nil:
			h.log.Info("counter adjustment replayed", "key", adj.Key)
		case errors.Is(err, domain.ErrDanglingReference):
			h.log.Warn("dropping counter adjustment of missing entity", "key", adj.Key)
		default:
			remaining++
			h.log.Warn("counter adjustment still failing", "key", adj.Key, "error", err)
			continue
		}
		if err := h.store.AckAdjustment(ctx, adj.Key); err != nil {
			remaining++
			h.log.Error("failed to ack counter adjustment", "key", adj.Key, "error", err)
		}
	}
	return remaining, nil
}

func (h *CounterHook) adjust(ctx context.Context, op string, version domain.BarcodeRegistration, ref domain.EntityRef, delta int) error {
	adj := domain.CounterAdjustment{Key: counterKey(op, version, ref), Kind: ref.Kind, ID: ref.ID, Delta: delta}

	err := h.apply(ctx, adj)
	if err == nil || errors.Is(err, domain.ErrDanglingReference) {
		return err
	}
	if queueErr := h.store.QueueAdjustment(ctx, adj); queueErr != nil {
		h.log.Error("CRITICAL: failed to queue counter adjustment", "key", adj.Key, "error", queueErr)
	}
	return err
}

func (h *CounterHook) apply(ctx context.Context, adj domain.CounterAdjustment) error {
	claimed, err := h.store.SetIdempotency(ctx, adj.Key)
	if err != nil {
		return fmt.Errorf("claim counter adjustment: %w", err)
	}
	if !claimed {
		h.log.Debug("counter adjustment already applied", "key", adj.Key)
		return nil
	}

	if err := h.entities.AdjustBarcodeCount(ctx, adj.Kind, adj.ID, adj.Delta); err != nil {
		if releaseErr := h.store.ReleaseIdempotency(ctx, adj.Key); releaseErr != nil {
			h.log.Error("CRITICAL: failed to release counter claim", "key", adj.Key, "error", releaseErr)
		}
		return fmt.Errorf("adjust barcode count of %s %s: %w", adj.Kind, adj.ID, err)
	}
	return nil
}

func counterKey(op string, version domain.BarcodeRegistration, ref domain.EntityRef) string {
	return fmt.Sprintf("barcode_count:%s:%s:%d:%s:%s", op, version.ID, version.UpdatedAt.UnixNano(), ref.Kind, ref.ID)
}
