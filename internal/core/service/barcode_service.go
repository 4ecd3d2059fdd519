package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/logger"
	"github.com/rl1809/barcode-registry/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// requestNamespace derives registration ids from client request ids.
var requestNamespace = uuid.MustParse("6f1c2f4e-2b7a-4c1e-9a57-3d9b1e0c8a41")

type BarcodeService struct {
	repo      port.RegistrationRepository
	orgs      port.OrganizationStore
	requests  port.IdempotencyStore
	validator *UniquenessValidator
	scopes    *ScopeResolver
	identity  *IdentityResolver
	exporter  *ExportProjector
	counters  *CounterHook
	log       *logger.Logger
	now       func() time.Time
}

type serviceOptions struct {
	readEntities port.EntityStore
}

type Option func(*serviceOptions)

// WithReadEntities serves entity resolution, partner key scopes, export and
// counter adjustments from store, typically a cache in front of the entity
// store given to NewBarcodeService. Validation always checks the latter.
func WithReadEntities(store port.EntityStore) Option {
	return func(o *serviceOptions) { o.readEntities = store }
}

func NewBarcodeService(
	repo port.RegistrationRepository,
	entities port.EntityStore,
	orgs port.OrganizationStore,
	counterStore port.CounterStore,
	log *logger.Logger,
	opts ...Option,
) *BarcodeService {
	o := serviceOptions{readEntities: entities}
	for _, opt := range opts {
		opt(&o)
	}

	identity := NewIdentityResolver(o.readEntities)
	return &BarcodeService{
		repo:      repo,
		orgs:      orgs,
		requests:  counterStore,
		validator: NewUniquenessValidator(entities),
		scopes:    NewScopeResolver(o.readEntities),
		identity:  identity,
		exporter:  NewExportProjector(identity, log),
		counters:  NewCounterHook(o.readEntities, counterStore, log),
		log:       log.With("service", "BarcodeService"),
		now:       time.Now,
	}
}

// Create registers reg and increments its entity's barcode count. A non-empty
// requestID makes the call idempotent: the registration id is derived from
// it, a replay of a committed request returns that registration, and a replay
// racing the original returns ErrDuplicateRequest.
func (s *BarcodeService) Create(ctx context.Context, requestID string, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error) {
	s.replayCounters(ctx)

	reg.ID = ""
	if requestID == "" {
		return s.create(ctx, reg)
	}

	reg.ID = uuid.NewSHA1(requestNamespace, []byte(requestID)).String()
	key := fmt.Sprintf("barcode:create:%s", requestID)
	ok, err := s.requests.SetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		existing, err := s.repo.Get(ctx, reg.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrDuplicateRequest
		}
		return existing, err
	}

	created, err := s.create(ctx, reg)
	if err != nil {
		// let the client retry once the problem is fixed
		if releaseErr := s.requests.ReleaseIdempotency(ctx, key); releaseErr != nil {
			s.log.Warn("failed to release request claim", "request_id", requestID, "error", releaseErr)
		}
		return nil, err
	}
	return created, nil
}

// create returns an error only when nothing was committed.
func (s *BarcodeService) create(ctx context.Context, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error) {
	reg.Normalize()
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	reg.Linked = nil

	if err := s.validate(ctx, reg); err != nil {
		return nil, err
	}

	now := s.now()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info("barcode registered", "id", reg.ID, "value", reg.Value, "global", reg.Global, "organization_id", reg.OrganizationID)

	if err := s.counters.AfterCreate(ctx, reg); err != nil {
		s.log.Error("barcode count increment deferred", "id", reg.ID, "error", err)
	}
	return &reg, nil
}

// Update corrects value, quantity or linkage of an existing registration.
func (s *BarcodeService) Update(ctx context.Context, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error) {
	s.replayCounters(ctx)

	previous, err := s.repo.Get(ctx, reg.ID)
	if err != nil {
		return nil, err
	}

	reg.Normalize()
	reg.Linked = nil
	reg.CreatedAt = previous.CreatedAt

	if err := s.validate(ctx, reg); err != nil {
		return nil, err
	}

	reg.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, err
	}

	if err := s.counters.AfterRelink(ctx, *previous, reg); err != nil {
		s.log.Error("barcode count relink deferred", "id", reg.ID, "error", err)
	}
	return &reg, nil
}

// Delete deregisters a barcode and decrements its entity's count. If the
// delete does not commit, no adjustment is made.
func (s *BarcodeService) Delete(ctx context.Context, id string) error {
	s.replayCounters(ctx)

	reg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("barcode deregistered", "id", id, "value", reg.Value)

	if err := s.counters.AfterDestroy(ctx, *reg); err != nil {
		s.log.Error("barcode count decrement deferred", "id", id, "error", err)
	}
	return nil
}

// ReplayCounters applies barcode_count adjustments that failed after their
// change committed and returns how many are still pending.
func (s *BarcodeService) ReplayCounters(ctx context.Context) (int, error) {
	return s.counters.Replay(ctx)
}

func (s *BarcodeService) replayCounters(ctx context.Context) {
	if _, err := s.counters.Replay(ctx); err != nil {
		s.log.Warn("counter replay failed", "error", err)
	}
}

func (s *BarcodeService) Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error) {
	return s.repo.Get(ctx, id)
}

// List returns registrations matching scope in scope.Ordering.
func (s *BarcodeService) List(ctx context.Context, scope domain.Scope) ([]domain.BarcodeRegistration, error) {
	q, err := s.scopes.Resolve(ctx, scope)
	if err != nil {
		return nil, err
	}
	regs, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list barcodes: %w", err)
	}
	if q.EagerLoad {
		if err := s.identity.Attach(ctx, regs); err != nil {
			return nil, err
		}
	}
	return regs, nil
}

// Lookup resolves a scanned value for an organization. The organization's own
// registration wins over a global one.
func (s *BarcodeService) Lookup(ctx context.Context, orgID, value string) (*domain.BarcodeRegistration, error) {
	opts := []domain.ScopeOption{domain.ByValue(value)}
	if orgID != "" {
		opts = append(opts, domain.OrganizationWithGlobals(orgID))
	} else {
		opts = append(opts, domain.OnlyGlobal())
	}

	regs, err := s.List(ctx, domain.NewScope(opts...))
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, domain.ErrNotFound
	}

	reg := regs[0]
	entity, err := s.identity.Resolve(ctx, reg)
	if err != nil {
		return nil, err
	}
	reg.Linked = entity
	return &reg, nil
}

// Export returns the CSV table (header first) of an organization's barcodes.
func (s *BarcodeService) Export(ctx context.Context, orgID string) ([][]string, error) {
	regs, err := s.List(ctx, domain.NewScope(domain.ForExport(orgID)))
	if err != nil {
		return nil, err
	}
	return s.exporter.Table(ctx, regs)
}

func (s *BarcodeService) validate(ctx context.Context, reg domain.BarcodeRegistration) error {
	var existing []domain.BarcodeRegistration
	if reg.Value != "" {
		var err error
		existing, err = s.repo.FindByValue(ctx, reg.Value)
		if err != nil {
			return fmt.Errorf("load registrations for %q: %w", reg.Value, err)
		}
	}
	if err := s.validator.Validate(ctx, reg, existing); err != nil {
		return err
	}

	if !reg.Global {
		ok, err := s.orgs.OrganizationExists(ctx, reg.OrganizationID)
		if err != nil {
			return fmt.Errorf("organization check failed: %w", err)
		}
		if !ok {
			return domain.ValidationErrors{domain.ErrUnknownOrganization}
		}
	}
	return nil
}
