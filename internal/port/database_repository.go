package port

import (
	"context"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

type RegistrationRepository interface {
	// Get returns domain.ErrNotFound when no registration has the id
	Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error)

	// FindByValue returns every registration carrying value, across namespaces
	FindByValue(ctx context.Context, value string) ([]domain.BarcodeRegistration, error)

	// Create persists a registration; a namespace collision yields domain.ErrDuplicateValue
	Create(ctx context.Context, reg domain.BarcodeRegistration) error

	// Update overwrites a registration; a namespace collision yields domain.ErrDuplicateValue
	Update(ctx context.Context, reg domain.BarcodeRegistration) error

	// Delete removes a registration, returning domain.ErrNotFound if nothing was deleted
	Delete(ctx context.Context, id string) error

	// List executes a resolved query in its requested order
	List(ctx context.Context, q domain.Query) ([]domain.BarcodeRegistration, error)
}

type EntityStore interface {
	// Find returns nil without error when the entity does not exist
	Find(ctx context.Context, kind domain.EntityKind, id string) (*domain.LinkedEntity, error)

	// FindMany loads entities of one kind in a single round trip; missing ids are omitted
	FindMany(ctx context.Context, kind domain.EntityKind, ids []string) ([]domain.LinkedEntity, error)

	// FindByPartnerKey returns entities of kind whose partner key equals key
	FindByPartnerKey(ctx context.Context, kind domain.EntityKind, key string) ([]domain.LinkedEntity, error)

	// AdjustBarcodeCount adds delta to the entity's denormalized barcode count
	AdjustBarcodeCount(ctx context.Context, kind domain.EntityKind, id string, delta int) error
}

type OrganizationStore interface {
	OrganizationExists(ctx context.Context, id string) (bool, error)
}
