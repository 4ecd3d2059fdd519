package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/logger"
)

// Mock RegistrationRepository enforcing the same namespace constraint as the
// MySQL unique key.
type mockRepo struct {
	mu        sync.Mutex
	regs      map[string]domain.BarcodeRegistration
	deleteErr error
	// hideValues makes FindByValue miss, simulating a concurrent writer
	hideValues bool
}

func newMockRepo(regs ...domain.BarcodeRegistration) *mockRepo {
	m := &mockRepo{regs: make(map[string]domain.BarcodeRegistration)}
	for _, r := range regs {
		m.regs[r.ID] = r
	}
	return m
}

func (m *mockRepo) Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRepo) FindByValue(ctx context.Context, value string) ([]domain.BarcodeRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideValues {
		return nil, nil
	}
	var out []domain.BarcodeRegistration
	for _, r := range m.regs {
		if r.Value == value {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) conflicts(reg domain.BarcodeRegistration) bool {
	for _, r := range m.regs {
		if r.ID != reg.ID && r.Value == reg.Value && r.Namespace() == reg.Namespace() {
			return true
		}
	}
	return false
}

func (m *mockRepo) Create(ctx context.Context, reg domain.BarcodeRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts(reg) {
		return domain.ErrDuplicateValue
	}
	m.regs[reg.ID] = reg
	return nil
}

func (m *mockRepo) Update(ctx context.Context, reg domain.BarcodeRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[reg.ID]; !ok {
		return domain.ErrNotFound
	}
	if m.conflicts(reg) {
		return domain.ErrDuplicateValue
	}
	m.regs[reg.ID] = reg
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.regs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.regs, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, q domain.Query) ([]domain.BarcodeRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.BarcodeRegistration, 0, len(m.regs))
	for _, r := range m.regs {
		all = append(all, r)
	}
	return q.Filter(all), nil
}

// Mock EntityStore
type mockEntities struct {
	mu            sync.Mutex
	entities      map[domain.EntityRef]*domain.LinkedEntity
	findCalls     int
	findManyCalls int
	adjustErr     error
}

func newMockEntities(entities ...domain.LinkedEntity) *mockEntities {
	m := &mockEntities{entities: make(map[domain.EntityRef]*domain.LinkedEntity)}
	for _, e := range entities {
		e := e
		m.entities[domain.EntityRef{Kind: e.Kind, ID: e.ID}] = &e
	}
	return m
}

func (m *mockEntities) Find(ctx context.Context, kind domain.EntityKind, id string) (*domain.LinkedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	e, ok := m.entities[domain.EntityRef{Kind: kind, ID: id}]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntities) FindMany(ctx context.Context, kind domain.EntityKind, ids []string) ([]domain.LinkedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findManyCalls++
	var out []domain.LinkedEntity
	for _, id := range ids {
		if e, ok := m.entities[domain.EntityRef{Kind: kind, ID: id}]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEntities) FindByPartnerKey(ctx context.Context, kind domain.EntityKind, key string) ([]domain.LinkedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LinkedEntity
	for ref, e := range m.entities {
		if ref.Kind == kind && e.PartnerKey == key {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEntities) AdjustBarcodeCount(ctx context.Context, kind domain.EntityKind, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return m.adjustErr
	}
	e, ok := m.entities[domain.EntityRef{Kind: kind, ID: id}]
	if !ok {
		return domain.ErrDanglingReference
	}
	e.BarcodeCount += delta
	return nil
}

func (m *mockEntities) count(kind domain.EntityKind, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entities[domain.EntityRef{Kind: kind, ID: id}].BarcodeCount
}

func (m *mockEntities) remove(kind domain.EntityKind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, domain.EntityRef{Kind: kind, ID: id})
}

// Mock OrganizationStore
type mockOrgs map[string]bool

func (m mockOrgs) OrganizationExists(ctx context.Context, id string) (bool, error) {
	return m[id], nil
}

// Mock CounterStore: idempotency claims plus the pending adjustment queue
type mockIdempotency struct {
	mu      sync.Mutex
	keys    map[string]bool
	pending map[string]domain.CounterAdjustment
	err     error
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool), pending: make(map[string]domain.CounterAdjustment)}
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotency) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *mockIdempotency) QueueAdjustment(ctx context.Context, adj domain.CounterAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.pending[adj.Key] = adj
	return nil
}

func (m *mockIdempotency) PendingAdjustments(ctx context.Context) ([]domain.CounterAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.CounterAdjustment, 0, len(m.pending))
	for _, adj := range m.pending {
		out = append(out, adj)
	}
	return out, nil
}

func (m *mockIdempotency) AckAdjustment(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	return nil
}

func (m *mockIdempotency) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

var errBoom = errors.New("boom")

var (
	widget = domain.LinkedEntity{ID: "item-1", Kind: domain.EntityKindItem, Name: "Widget", PartnerKey: "widget"}
	can    = domain.LinkedEntity{ID: "base-1", Kind: domain.EntityKindBaseItem, Name: "Can", PartnerKey: "can"}
)

// at returns a fixed timestamp offset by minutes, for ordering tests.
func at(minutes int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func newTestService(repo *mockRepo, entities *mockEntities, orgs mockOrgs) (*BarcodeService, *mockIdempotency) {
	idem := newMockIdempotency()
	return NewBarcodeService(repo, entities, orgs, idem, logger.NewNop()), idem
}

func nopLogger() *logger.Logger { return logger.NewNop() }
