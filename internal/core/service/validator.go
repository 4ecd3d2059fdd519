package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/port"
)

// UniquenessValidator decides whether a candidate registration may be
// persisted. The duplicate check is a fast path; storage enforces the same
// namespace constraint at commit.
type UniquenessValidator struct {
	v        *validator.Validate
	entities port.EntityStore
}

func NewUniquenessValidator(entities port.EntityStore) *UniquenessValidator {
	return &UniquenessValidator{v: validator.New(), entities: entities}
}

// fieldKinds maps struct fields carrying validate tags to their error.
var fieldKinds = map[string]*domain.Error{
	"Value":          domain.ErrMissingValue,
	"Quantity":       domain.ErrInvalidQuantity,
	"LinkedEntityID": domain.ErrMissingLinkedEntity,
}

// Validate checks candidate against existing, which must contain at least
// every registration sharing the candidate's value. It returns
// domain.ValidationErrors or an infrastructure error from the entity store.
func (u *UniquenessValidator) Validate(ctx context.Context, candidate domain.BarcodeRegistration, existing []domain.BarcodeRegistration) error {
	var errs domain.ValidationErrors

	if candidate.OrganizationID == "" && !candidate.Global {
		errs = append(errs, domain.ErrMissingOrganization)
	}

	if err := u.v.Struct(candidate); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate registration: %w", err)
		}
		for _, fe := range fieldErrs {
			if kind, ok := fieldKinds[fe.StructField()]; ok {
				errs = append(errs, kind)
			}
		}
	}

	if candidate.LinkedEntityID != "" {
		resolved, err := u.linkedEntityExists(ctx, candidate.Ref())
		if err != nil {
			return err
		}
		if !resolved {
			errs = append(errs, domain.ErrMissingLinkedEntity)
		}
	}

	if candidate.Value != "" && IsDuplicate(candidate, existing) {
		errs = append(errs, domain.ErrDuplicateValue)
	}

	return errs.ErrOrNil()
}

func (u *UniquenessValidator) linkedEntityExists(ctx context.Context, ref domain.EntityRef) (bool, error) {
	if !ref.Kind.Valid() {
		return false, nil
	}
	entity, err := u.entities.Find(ctx, ref.Kind, ref.ID)
	if err != nil {
		return false, fmt.Errorf("lookup linked entity: %w", err)
	}
	return entity != nil, nil
}

// IsDuplicate reports whether another registration (different id) occupies
// the candidate's value in the candidate's namespace.
func IsDuplicate(candidate domain.BarcodeRegistration, existing []domain.BarcodeRegistration) bool {
	for _, other := range existing {
		if other.ID == candidate.ID && candidate.ID != "" {
			continue
		}
		if other.Value != candidate.Value {
			continue
		}
		if candidate.Global {
			if other.Global {
				return true
			}
			continue
		}
		if !other.Global && other.OrganizationID == candidate.OrganizationID {
			return true
		}
	}
	return false
}
