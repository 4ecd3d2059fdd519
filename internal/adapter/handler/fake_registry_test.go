package handler

import (
	"context"
	"sync"

	"github.com/rl1809/barcode-registry/internal/core/domain"
)

type fakeRegistry struct {
	mu        sync.Mutex
	regs      map[string]domain.BarcodeRegistration
	createErr error
	lastScope domain.Scope
	lastReq   string
	lastReg   domain.BarcodeRegistration
	table     [][]string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{regs: make(map[string]domain.BarcodeRegistration)}
}

func (f *fakeRegistry) Create(ctx context.Context, requestID string, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = requestID
	f.lastReg = reg
	if f.createErr != nil {
		return nil, f.createErr
	}
	reg.ID = "reg-1"
	f.regs[reg.ID] = reg
	return &reg, nil
}

func (f *fakeRegistry) Update(ctx context.Context, reg domain.BarcodeRegistration) (*domain.BarcodeRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.regs[reg.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	f.regs[reg.ID] = reg
	return &reg, nil
}

func (f *fakeRegistry) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.regs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.regs, id)
	return nil
}

func (f *fakeRegistry) Get(ctx context.Context, id string) (*domain.BarcodeRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reg, nil
}

func (f *fakeRegistry) List(ctx context.Context, scope domain.Scope) ([]domain.BarcodeRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastScope = scope
	var out []domain.BarcodeRegistration
	for _, reg := range f.regs {
		out = append(out, reg)
	}
	return out, nil
}

func (f *fakeRegistry) Lookup(ctx context.Context, orgID, value string) (*domain.BarcodeRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.Value == value && (reg.Global || reg.OrganizationID == orgID) {
			return &reg, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistry) Export(ctx context.Context, orgID string) ([][]string, error) {
	return f.table, nil
}

func (f *fakeRegistry) put(reg domain.BarcodeRegistration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[reg.ID] = reg
}
