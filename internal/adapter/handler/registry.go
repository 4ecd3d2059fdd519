package handler

import (
	"context"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

// BarcodeRegistry is the subset of service.BarcodeService the transports use.
type BarcodeRegistry interface {
	Create(ctx context.Context, requestID string, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error)
	Update(ctx context.Context, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error)
	List(ctx context.Context, scope domain.Scope) ([]domain.BarcodeRegistration, error)
	Lookup(ctx context.Context, orgID, value string) (*domain.BarcodeRegistration, error)
	Export(ctx context.Context, orgID string) ([][]string, error)
}
