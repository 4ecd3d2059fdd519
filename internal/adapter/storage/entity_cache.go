package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/logger"
	"github.com/rl1809/barcode-registry/internal/port"
)

// CachedEntityStore keeps recently resolved linked entities in process so
// repeated lookups of the same barcode do not hit the entity store. Count
// adjustments evict the entry they touch.
type CachedEntityStore struct {
	next  port.EntityStore
	cache *gocache.Cache
	log   *logger.Logger
}

var _ port.EntityStore = (*CachedEntityStore)(nil)

func NewCachedEntityStore(next port.EntityStore, ttl, cleanupInterval time.Duration, log *logger.Logger) *CachedEntityStore {
	return &CachedEntityStore{
		next:  next,
		cache: gocache.New(ttl, cleanupInterval),
		log:   log.With("component", "CachedEntityStore"),
	}
}

func entityCacheKey(kind domain.EntityKind, id string) string {
	return string(kind) + ":" + id
}

func (c *CachedEntityStore) get(kind domain.EntityKind, id string) (domain.LinkedEntity, bool) {
	value, found := c.cache.Get(entityCacheKey(kind, id))
	if !found {
		return domain.LinkedEntity{}, false
	}
	e, ok := value.(domain.LinkedEntity)
	if !ok {
		c.log.Error("wrong type in entity cache", "kind", kind, "id", id)
		return domain.LinkedEntity{}, false
	}
	return e, true
}

func (c *CachedEntityStore) put(e domain.LinkedEntity) {
	c.cache.SetDefault(entityCacheKey(e.Kind, e.ID), e)
}

func (c *CachedEntityStore) Find(ctx context.Context, kind domain.EntityKind, id string) (*domain.LinkedEntity, error) {
	if e, ok := c.get(kind, id); ok {
		return &e, nil
	}
	e, err := c.next.Find(ctx, kind, id)
	if err != nil || e == nil {
		return e, err
	}
	c.put(*e)
	return e, nil
}

// FindMany serves cached ids locally and fetches the rest in one call.
func (c *CachedEntityStore) FindMany(ctx context.Context, kind domain.EntityKind, ids []string) ([]domain.LinkedEntity, error) {
	out := make([]domain.LinkedEntity, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if e, ok := c.get(kind, id); ok {
			out = append(out, e)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.next.FindMany(ctx, kind, missing)
	if err != nil {
		return nil, err
	}
	for _, e := range fetched {
		c.put(e)
	}
	return append(out, fetched...), nil
}

// FindByPartnerKey is not cached: partner keys can be reassigned outside the
// registry.
func (c *CachedEntityStore) FindByPartnerKey(ctx context.Context, kind domain.EntityKind, key string) ([]domain.LinkedEntity, error) {
	return c.next.FindByPartnerKey(ctx, kind, key)
}

func (c *CachedEntityStore) AdjustBarcodeCount(ctx context.Context, kind domain.EntityKind, id string, delta int) error {
	c.cache.Delete(entityCacheKey(kind, id))
	return c.next.AdjustBarcodeCount(ctx, kind, id, delta)
}
