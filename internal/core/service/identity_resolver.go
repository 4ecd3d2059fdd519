package service

import (
	"context"
	"fmt"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/port"
)

type lookupFunc func(ctx context.Context, id string) (*domain.LinkedEntity, error)

type batchLookupFunc func(ctx context.Context, ids []string) ([]domain.LinkedEntity, error)

// IdentityResolver follows a registration's tagged reference to its entity
// through a kind -> lookup dispatch table.
type IdentityResolver struct {
	lookups      map[domain.EntityKind]lookupFunc
	batchLookups map[domain.EntityKind]batchLookupFunc
}

func NewIdentityResolver(entities port.EntityStore) *IdentityResolver {
	r := &IdentityResolver{
		lookups:      make(map[domain.EntityKind]lookupFunc, len(domain.EntityKinds)),
		batchLookups: make(map[domain.EntityKind]batchLookupFunc, len(domain.EntityKinds)),
	}
	for _, kind := range domain.EntityKinds {
		r.lookups[kind] = func(ctx context.Context, id string) (*domain.LinkedEntity, error) {
			return entities.Find(ctx, kind, id)
		}
		r.batchLookups[kind] = func(ctx context.Context, ids []string) ([]domain.LinkedEntity, error) {
			return entities.FindMany(ctx, kind, ids)
		}
	}
	return r
}

// Resolve returns the attached entity when present, otherwise fetches it.
// A reference to a missing entity yields domain.ErrDanglingReference.
func (r *IdentityResolver) Resolve(ctx context.Context, reg domain.BarcodeRegistration) (*domain.LinkedEntity, error) {
	if reg.Linked != nil {
		return reg.Linked, nil
	}
	lookup, ok := r.lookups[reg.LinkedEntityKind]
	if !ok {
		return nil, domain.ErrMissingLinkedEntity.WithMessage(fmt.Sprintf("has unknown kind %q", reg.LinkedEntityKind))
	}
	entity, err := lookup(ctx, reg.LinkedEntityID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", reg.LinkedEntityKind, reg.LinkedEntityID, err)
	}
	if entity == nil {
		return nil, domain.ErrDanglingReference.WithMessage(fmt.Sprintf("%s %s no longer exists", reg.LinkedEntityKind, reg.LinkedEntityID))
	}
	return entity, nil
}

// Attach loads the linked entities of regs with one lookup per kind and sets
// Linked on each registration in place. Dangling references stay nil.
func (r *IdentityResolver) Attach(ctx context.Context, regs []domain.BarcodeRegistration) error {
	idsByKind := make(map[domain.EntityKind][]string)
	for _, reg := range regs {
		if reg.Linked == nil {
			idsByKind[reg.LinkedEntityKind] = append(idsByKind[reg.LinkedEntityKind], reg.LinkedEntityID)
		}
	}

	loaded := make(map[domain.EntityRef]*domain.LinkedEntity)
	for kind, ids := range idsByKind {
		lookup, ok := r.batchLookups[kind]
		if !ok {
			continue
		}
		entities, err := lookup(ctx, ids)
		if err != nil {
			return fmt.Errorf("attach %s entities: %w", kind, err)
		}
		for i := range entities {
			loaded[domain.EntityRef{Kind: kind, ID: entities[i].ID}] = &entities[i]
		}
	}

	for i := range regs {
		if regs[i].Linked == nil {
			regs[i].Linked = loaded[regs[i].Ref()]
		}
	}
	return nil
}
