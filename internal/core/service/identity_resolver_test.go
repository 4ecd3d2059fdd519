package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

func TestResolve_DispatchesOnKind(t *testing.T) {
	r := NewIdentityResolver(newMockEntities(widget, can))

	item, err := r.Resolve(context.Background(), domain.BarcodeRegistration{LinkedEntityID: widget.ID, LinkedEntityKind: domain.EntityKindItem})
	require.NoError(t, err)
	assert.Equal(t, "Widget", item.Name)

	base, err := r.Resolve(context.Background(), domain.BarcodeRegistration{LinkedEntityID: can.ID, LinkedEntityKind: domain.EntityKindBaseItem})
	require.NoError(t, err)
	assert.Equal(t, "Can", base.Name)
}

func TestResolve_Dangling(t *testing.T) {
	r := NewIdentityResolver(newMockEntities(widget))
	_, err := r.Resolve(context.Background(), domain.BarcodeRegistration{LinkedEntityID: "gone", LinkedEntityKind: domain.EntityKindItem})
	assert.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestResolve_UnknownKind(t *testing.T) {
	r := NewIdentityResolver(newMockEntities(widget))
	_, err := r.Resolve(context.Background(), domain.BarcodeRegistration{LinkedEntityID: widget.ID, LinkedEntityKind: "Pallet"})
	assert.ErrorIs(t, err, domain.ErrMissingLinkedEntity)
}

func TestResolve_UsesAttachedEntity(t *testing.T) {
	entities := newMockEntities(widget)
	r := NewIdentityResolver(entities)
	attached := &domain.LinkedEntity{ID: widget.ID, Name: "Attached"}

	got, err := r.Resolve(context.Background(), domain.BarcodeRegistration{LinkedEntityID: widget.ID, LinkedEntityKind: domain.EntityKindItem, Linked: attached})
	require.NoError(t, err)
	assert.Same(t, attached, got)
	assert.Zero(t, entities.findCalls)
}

func TestAttach_OneLookupPerKind(t *testing.T) {
	entities := newMockEntities(widget, can)
	r := NewIdentityResolver(entities)
	regs := []domain.BarcodeRegistration{
		{ID: "1", LinkedEntityID: widget.ID, LinkedEntityKind: domain.EntityKindItem},
		{ID: "2", LinkedEntityID: can.ID, LinkedEntityKind: domain.EntityKindBaseItem},
		{ID: "3", LinkedEntityID: widget.ID, LinkedEntityKind: domain.EntityKindItem},
		{ID: "4", LinkedEntityID: "gone", LinkedEntityKind: domain.EntityKindItem},
	}

	require.NoError(t, r.Attach(context.Background(), regs))
	assert.Equal(t, 2, entities.findManyCalls)
	assert.Zero(t, entities.findCalls)
	assert.Equal(t, "Widget", regs[0].Item().Name)
	assert.Equal(t, "Can", regs[1].BaseItem().Name)
	assert.Equal(t, "Widget", regs[2].Linked.Name)
	assert.Nil(t, regs[3].Linked)
}
