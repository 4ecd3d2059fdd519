package domain

import (
	"math"
	"time"
)

type EntityKind string

const (
	EntityKindItem     EntityKind = "Item"
	EntityKindBaseItem EntityKind = "BaseItem"
)

// EntityKinds lists every kind a registration may link to.
var EntityKinds = []EntityKind{EntityKindItem, EntityKindBaseItem}

func (k EntityKind) Valid() bool {
	return k == EntityKindItem || k == EntityKindBaseItem
}

// BarcodeRegistration maps a scanned value to a quantity of one linked entity,
// either globally or inside a single organization's namespace.
type BarcodeRegistration struct {
	ID               string
	Value            string `validate:"required"`
	Quantity         int    `validate:"gt=0"`
	LinkedEntityID   string `validate:"required"`
	LinkedEntityKind EntityKind
	OrganizationID   string
	Global           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Linked is set when the entity was loaded together with the registration.
	Linked *LinkedEntity
}

// Normalize fills defaults the storage layer would otherwise apply.
func (b *BarcodeRegistration) Normalize() {
	if b.LinkedEntityKind == "" {
		b.LinkedEntityKind = EntityKindItem
	}
}

// NamespaceKey identifies a uniqueness domain. Global registrations share one
// key whatever organization they carry.
type NamespaceKey struct {
	Global         bool
	OrganizationID string
}

// Namespace returns the uniqueness domain of the registration.
func (b BarcodeRegistration) Namespace() NamespaceKey {
	if b.Global {
		return NamespaceKey{Global: true}
	}
	return NamespaceKey{OrganizationID: b.OrganizationID}
}

func (b BarcodeRegistration) Ref() EntityRef {
	return EntityRef{Kind: b.LinkedEntityKind, ID: b.LinkedEntityID}
}

// Item and BaseItem are aliases for the attached linked entity.
func (b BarcodeRegistration) Item() *LinkedEntity     { return b.Linked }
func (b BarcodeRegistration) BaseItem() *LinkedEntity { return b.Linked }

// Summary is the compact form returned by barcode lookups.
func (b BarcodeRegistration) Summary() map[string]any {
	return map[string]any{
		"linked_entity_id":   b.LinkedEntityID,
		"linked_entity_kind": string(b.LinkedEntityKind),
		"quantity":           b.Quantity,
	}
}

// QuantityFromNumber converts a decoded JSON number into a quantity,
// rejecting fractional and non-positive values.
func QuantityFromNumber(n float64) (int, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n <= 0 || n > math.MaxInt32 {
		return 0, ErrInvalidQuantity
	}
	return int(n), nil
}
