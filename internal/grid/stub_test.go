package grid

import (
	"context"
	"sync"

	"github.com/rpattn/gridsync/internal/domain"
	"github.com/rpattn/gridsync/internal/repository"

	"github.com/google/uuid"
)

// stubProductRepo is an in-memory remote store for tests. Error fields make
// individual operations fail on demand.
type stubProductRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.Product
	order   []uuid.UUID

	updates     []domain.Product
	bulkUpdates [][]domain.Product
	deletes     []uuid.UUID
	listCalls   int

	updateErr error
	deleteErr error
	listErr   error
}

func newStubProductRepo(seed ...domain.Product) *stubProductRepo {
	repo := &stubProductRepo{records: make(map[uuid.UUID]domain.Product)}
	for _, record := range seed {
		repo.records[record.ID] = record
		repo.order = append(repo.order, record.ID)
	}
	return repo
}

func (r *stubProductRepo) List(_ context.Context, _ uuid.UUID) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out, nil
}

func (r *stubProductRepo) Create(_ context.Context, _ uuid.UUID, product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[product.ID] = product
	r.order = append(r.order, product.ID)
	return product, nil
}

func (r *stubProductRepo) Update(_ context.Context, _ uuid.UUID, product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return domain.Product{}, r.updateErr
	}
	if _, ok := r.records[product.ID]; !ok {
		return domain.Product{}, repository.ErrNotFound
	}
	r.records[product.ID] = product
	r.updates = append(r.updates, product)
	return product, nil
}

func (r *stubProductRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.deletes = append(r.deletes, id)
	return nil
}

func (r *stubProductRepo) BulkUpdate(_ context.Context, _ uuid.UUID, products []domain.Product) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for _, product := range products {
		if _, ok := r.records[product.ID]; !ok {
			r.order = append(r.order, product.ID)
		}
		r.records[product.ID] = product
	}
	batch := make([]domain.Product, len(products))
	copy(batch, products)
	r.bulkUpdates = append(r.bulkUpdates, batch)
	return batch, nil
}

func (r *stubProductRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *stubProductRepo) lastUpdate() (domain.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return domain.Product{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func (r *stubProductRepo) get(id uuid.UUID) (domain.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	return record, ok
}

// stubAuditRepo collects audit entries in memory.
type stubAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *stubAuditRepo) Record(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) ListByProduct(_ context.Context, _ uuid.UUID, productID uuid.UUID) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ProductID == productID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

// stubValidator delegates to a function so tests can script behavior per call.
type stubValidator struct {
	fn func(ctx context.Context, product domain.Product) ([]domain.FieldValidation, error)
}

func (v *stubValidator) Validate(ctx context.Context, _ uuid.UUID, product domain.Product) ([]domain.FieldValidation, error) {
	return v.fn(ctx, product)
}

func testProduct(name string, price float64, stock int) domain.Product {
	product := domain.NewProduct("tester")
	product.Name = name
	product.Price = price
	product.Stock = stock
	return product
}
