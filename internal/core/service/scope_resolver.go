package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/port"
)

// ScopeResolver turns a Scope into a Query. Partner key filters need the
// entity store because the linked reference is polymorphic and has no single
// table to join against.
type ScopeResolver struct {
	entities port.EntityStore
}

func NewScopeResolver(entities port.EntityStore) *ScopeResolver {
	return &ScopeResolver{entities: entities}
}

func (r *ScopeResolver) Resolve(ctx context.Context, scope domain.Scope) (domain.Query, error) {
	q := domain.Query{
		Ordering:  scope.Ordering,
		EagerLoad: scope.EagerLoad(),
	}
	if q.Ordering == nil {
		q.Ordering = slices.Clone(domain.DefaultOrdering)
	}

	if scope.LinkedEntityID != nil {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondLinkedEntityID, Text: *scope.LinkedEntityID})
	}

	for _, pk := range scope.PartnerKeys {
		entities, err := r.entities.FindByPartnerKey(ctx, pk.Kind, pk.Key)
		if err != nil {
			return domain.Query{}, fmt.Errorf("resolve %s partner key: %w", pk.Kind, err)
		}
		ids := make([]string, 0, len(entities))
		for _, e := range entities {
			ids = append(ids, e.ID)
		}
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondLinkedEntityIn, EntityKind: pk.Kind, IDs: ids})
	}

	if scope.Value != nil {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondValue, Text: *scope.Value})
	}

	if scope.OrganizationWithGlobals != nil {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondOrganizationWithGlobals, Text: *scope.OrganizationWithGlobals})
	}

	// include_global=true allows both groups, which is no restriction at all
	if scope.IncludeGlobal != nil && !*scope.IncludeGlobal {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondGlobal, Flag: false})
	}

	if scope.ExportOrganization != nil {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondOrganization, Text: *scope.ExportOrganization})
	}

	if scope.OnlyGlobal {
		q.Conditions = append(q.Conditions, domain.Condition{Kind: domain.CondGlobal, Flag: true})
	}

	return q, nil
}
