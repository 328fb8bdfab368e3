package grid

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

// Validator is the external AI validation capability. Errors fail open: the
// orchestrator treats any failure as "no results".
type Validator interface {
	Validate(ctx context.Context, tenantID uuid.UUID, product domain.Product) ([]domain.FieldValidation, error)
}

// Orchestrator runs fire-and-forget validation per edited record. Results are
// advisory: they attach to a record id, are replaced wholesale by the next
// run for the same id, and never block or fail a save. A superseding call
// cancels the stale one so its late result is discarded.
type Orchestrator struct {
	tenantID  uuid.UUID
	validator Validator
	timeout   time.Duration

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	seq     map[uuid.UUID]uint64
	results map[uuid.UUID][]domain.FieldValidation
	closed  bool
}

// NewOrchestrator creates an orchestrator for one tenant session.
func NewOrchestrator(tenantID uuid.UUID, validator Validator, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Orchestrator{
		tenantID:  tenantID,
		validator: validator,
		timeout:   timeout,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
		seq:       make(map[uuid.UUID]uint64),
		results:   make(map[uuid.UUID][]domain.FieldValidation),
	}
}

// Trigger starts validation against a snapshot of the record at edit time.
// Any in-flight run for the same id is cancelled and its result ignored.
func (o *Orchestrator) Trigger(record domain.Product) {
	if o == nil || o.validator == nil {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if cancel, ok := o.cancels[record.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	o.cancels[record.ID] = cancel
	o.seq[record.ID]++
	generation := o.seq[record.ID]
	o.mu.Unlock()

	go func() {
		defer cancel()
		validations, err := o.validator.Validate(ctx, o.tenantID, record)
		if err != nil {
			log.Printf("[grid] validation for record %s failed: %v", record.ID, err)
			return
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.closed || o.seq[record.ID] != generation {
			return
		}
		o.results[record.ID] = validations
		delete(o.cancels, record.ID)
	}()
}

// Results returns a copy of all stored validation lists keyed by record id.
func (o *Orchestrator) Results() map[uuid.UUID][]domain.FieldValidation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[uuid.UUID][]domain.FieldValidation, len(o.results))
	for id, list := range o.results {
		clone := make([]domain.FieldValidation, len(list))
		copy(clone, list)
		out[id] = clone
	}
	return out
}

// ResultsFor returns the stored validation list for one record.
func (o *Orchestrator) ResultsFor(id uuid.UUID) []domain.FieldValidation {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.results[id]
	clone := make([]domain.FieldValidation, len(list))
	copy(clone, list)
	return clone
}

// Dismiss clears stored results for the record and cancels any in-flight run.
func (o *Orchestrator) Dismiss(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
	o.seq[id]++
	delete(o.results, id)
}

// Close cancels every in-flight run and drops stored results.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	for id, cancel := range o.cancels {
		cancel()
		delete(o.cancels, id)
	}
	o.results = make(map[uuid.UUID][]domain.FieldValidation)
}
