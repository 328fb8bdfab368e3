package grid

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rpattn/gridsync/internal/domain"
	"github.com/rpattn/gridsync/internal/repository"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by gestures that target an absent record.
var ErrRecordNotFound = errors.New("record not found in grid")

// SessionConfig wires one tenant editing session.
type SessionConfig struct {
	TenantID  uuid.UUID
	Actor     string
	Remote    repository.ProductRepository
	Audit     repository.AuditLogRepository
	Validator Validator

	DebounceWindow time.Duration
	RequestTimeout time.Duration
	HistoryLimit   int

	// Notify surfaces transient user-visible messages (e.g. a failed save).
	Notify func(message string)
}

// Session is the grid interaction surface for one tenant: it owns the record
// store, the command history, the persistence coordinator, and the validation
// orchestrator, and routes user gestures into them. All mutations of the
// store flow through Session methods or the coordinator's failure-recovery
// reload; a mutex serializes them so gestures behave like a single logical
// thread of control.
//
// The caller is responsible for the capability gate: a session must only be
// handed to an actor already cleared to mutate the tenant's records.
type Session struct {
	cfg SessionConfig

	mu           sync.Mutex
	store        *Store
	history      *History
	coordinator  *Coordinator
	orchestrator *Orchestrator

	search      string
	sortField   string
	sortDir     domain.SortDirection
	selection   map[uuid.UUID]struct{}
	assist      bool
	provisional map[uuid.UUID]struct{}
}

// NewSession constructs a session. Call Load before use and Close when the
// tenant session ends.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Notify == nil {
		cfg.Notify = func(message string) { log.Printf("[grid] %s", message) }
	}
	s := &Session{
		cfg:         cfg,
		store:       NewStore(),
		history:     NewHistory(cfg.HistoryLimit),
		sortDir:     domain.SortNone,
		selection:   make(map[uuid.UUID]struct{}),
		provisional: make(map[uuid.UUID]struct{}),
	}
	s.coordinator = NewCoordinator(CoordinatorConfig{
		TenantID:    cfg.TenantID,
		Remote:      cfg.Remote,
		Window:      cfg.DebounceWindow,
		Timeout:     cfg.RequestTimeout,
		OnError:     func(err error) { cfg.Notify(fmt.Sprintf("save failed: %v", err)) },
		OnReload:    s.reload,
		OnPersisted: s.markPersisted,
	})
	s.orchestrator = NewOrchestrator(cfg.TenantID, cfg.Validator, cfg.RequestTimeout)
	return s
}

// Load performs the initial fetch from the remote store.
func (s *Session) Load(ctx context.Context) error {
	records, err := s.cfg.Remote.List(ctx, s.cfg.TenantID)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Load(records)
	s.selection = make(map[uuid.UUID]struct{})
	s.provisional = make(map[uuid.UUID]struct{})
	return nil
}

// reload is the coordinator's failure-recovery path: the store is replaced
// wholesale, which discards unpersisted optimistic edits on every record.
func (s *Session) reload(records []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Load(records)
	s.provisional = make(map[uuid.UUID]struct{})
	for id := range s.selection {
		if _, ok := s.store.Get(id); !ok {
			delete(s.selection, id)
		}
	}
}

func (s *Session) markPersisted(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.provisional, id)
}

// Projection returns the filtered and sorted sequence to render.
func (s *Session) Projection() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.store.Records(), s.search, s.sortField, s.sortDir)
}

// SetSearch replaces the search filter.
func (s *Session) SetSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = query
}

// Search returns the active search filter.
func (s *Session) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// SortBy handles a sort-column click: repeated clicks on the same column
// cycle NONE -> ASC -> DESC -> NONE; a different column resets to ASC.
func (s *Session) SortBy(field string) error {
	if _, ok := domain.FieldByName(field); !ok {
		return fmt.Errorf("unknown sort field %q", field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sortField == field {
		s.sortDir = domain.NextDirection(s.sortDir)
	} else {
		s.sortField = field
		s.sortDir = domain.SortAsc
	}
	return nil
}

// SortState returns the active sort column and direction.
func (s *Session) SortState() (string, domain.SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortField, s.sortDir
}

// SetSelection replaces the selected row set. Unknown ids are kept; they are
// skipped by the bulk paths.
func (s *Session) SetSelection(ids []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		s.selection[id] = struct{}{}
	}
}

// Selection returns the selected ids in store order.
func (s *Session) Selection() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedInOrder()
}

func (s *Session) selectedInOrder() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.selection))
	for _, record := range s.store.Records() {
		if _, ok := s.selection[record.ID]; ok {
			ids = append(ids, record.ID)
		}
	}
	return ids
}

// EditCell applies a single-field edit: the old/new values are diffed, a
// command is recorded, the store mutated, persistence scheduled, and — when
// assist is on — validation triggered with the post-edit record.
func (s *Session) EditCell(id uuid.UUID, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.store.Get(id)
	if !ok {
		return ErrRecordNotFound
	}
	oldValue := current.Value(field)

	tentative, err := current.WithField(field, value, s.cfg.Actor)
	if err != nil {
		return err
	}
	newValue := tentative.Value(field)
	if newValue == oldValue {
		return nil
	}

	updated, _, err := s.store.UpsertField(id, field, value, s.cfg.Actor)
	if err != nil {
		return err
	}
	s.history.Record(domain.EditCommand{
		ProductID: id,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		At:        time.Now(),
	})
	s.coordinator.Schedule(updated, s.isProvisional(id))
	if s.assist {
		s.orchestrator.Trigger(updated)
	}
	return nil
}

// AddRow appends an empty row with a provisional identifier. The row is not
// persisted until an edit flushes it or imported rows are saved explicitly.
func (s *Session) AddRow() (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := domain.NewProduct(s.cfg.Actor)
	if err := s.store.Insert(record); err != nil {
		return domain.Product{}, err
	}
	s.provisional[record.ID] = struct{}{}
	s.history.Record(domain.AddCommand{Product: record, At: time.Now()})
	return record, nil
}

// DeleteSelected removes the selected rows. Deletion is not optimistic: each
// row is deleted remotely first and reflected locally only on success.
// Provisional rows exist only locally and are removed directly. Returns the
// number of rows removed; per-row remote failures are joined into the error.
func (s *Session) DeleteSelected(ctx context.Context) (int, error) {
	s.mu.Lock()
	targets := s.selectedInOrder()
	provisional := make(map[uuid.UUID]bool, len(targets))
	for _, id := range targets {
		provisional[id] = s.isProvisional(id)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return 0, nil
	}

	var confirmed []uuid.UUID
	var failures []error
	for _, id := range targets {
		if provisional[id] {
			confirmed = append(confirmed, id)
			continue
		}
		if err := s.cfg.Remote.Delete(ctx, s.cfg.TenantID, id); err != nil {
			failures = append(failures, fmt.Errorf("delete %s: %w", id, err))
			continue
		}
		confirmed = append(confirmed, id)
	}

	s.mu.Lock()
	removed := s.store.RemoveMany(confirmed)
	for _, record := range removed {
		s.coordinator.Cancel(record.ID)
		s.orchestrator.Dismiss(record.ID)
		delete(s.provisional, record.ID)
	}
	if len(removed) > 0 {
		s.history.Record(domain.DeleteCommand{Products: removed, At: time.Now()})
	}
	s.selection = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	err := errors.Join(failures...)
	if err != nil {
		s.cfg.Notify(fmt.Sprintf("delete failed for %d row(s): %v", len(failures), err))
	}
	return len(removed), err
}

// BulkSetField applies one value to the named field across the current
// selection, recording a single bulk command that carries every pre-edit
// value so the operation can be undone atomically.
func (s *Session) BulkSetField(field string, value any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.selectedInOrder()
	if len(ids) == 0 {
		return 0, nil
	}
	previous, err := s.store.BulkSetField(ids, field, value, s.cfg.Actor)
	if err != nil {
		return len(previous), err
	}
	if len(previous) == 0 {
		return 0, nil
	}

	var newValue any
	for id := range previous {
		if record, ok := s.store.Get(id); ok {
			newValue = record.Value(field)
			break
		}
	}
	s.history.Record(domain.BulkEditCommand{
		Field:    field,
		NewValue: newValue,
		Previous: previous,
		At:       time.Now(),
	})
	for id := range previous {
		if record, ok := s.store.Get(id); ok {
			s.coordinator.Schedule(record, s.isProvisional(id))
		}
	}
	return len(previous), nil
}

// Undo reverts the most recent command and re-triggers persistence for the
// affected records. It returns the command that was undone.
func (s *Session) Undo() (domain.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, ok := s.history.Undo()
	if !ok {
		return nil, false
	}
	switch c := cmd.(type) {
	case domain.EditCommand:
		if updated, present, err := s.store.UpsertField(c.ProductID, c.Field, c.OldValue, s.cfg.Actor); err == nil && present {
			s.coordinator.Schedule(updated, s.isProvisional(c.ProductID))
		}
	case domain.AddCommand:
		s.store.RemoveMany([]uuid.UUID{c.Product.ID})
		s.coordinator.Cancel(c.Product.ID)
		delete(s.provisional, c.Product.ID)
	case domain.DeleteCommand:
		// Reinsertion is local only; the server-side rows are not recreated,
		// so the rows become provisional again until explicitly saved.
		for _, record := range c.Products {
			if err := s.store.Insert(record); err == nil {
				s.provisional[record.ID] = struct{}{}
			}
		}
	case domain.BulkEditCommand:
		for id, old := range c.Previous {
			if updated, present, err := s.store.UpsertField(id, c.Field, old, s.cfg.Actor); err == nil && present {
				s.coordinator.Schedule(updated, s.isProvisional(id))
			}
		}
	}
	return cmd, true
}

// Redo re-applies the next command past the cursor.
func (s *Session) Redo() (domain.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, ok := s.history.Redo()
	if !ok {
		return nil, false
	}
	switch c := cmd.(type) {
	case domain.EditCommand:
		if updated, present, err := s.store.UpsertField(c.ProductID, c.Field, c.NewValue, s.cfg.Actor); err == nil && present {
			s.coordinator.Schedule(updated, s.isProvisional(c.ProductID))
		}
	case domain.AddCommand:
		if err := s.store.Insert(c.Product); err == nil {
			s.provisional[c.Product.ID] = struct{}{}
		}
	case domain.DeleteCommand:
		ids := make([]uuid.UUID, 0, len(c.Products))
		for _, record := range c.Products {
			ids = append(ids, record.ID)
		}
		removed := s.store.RemoveMany(ids)
		for _, record := range removed {
			s.coordinator.Cancel(record.ID)
			delete(s.provisional, record.ID)
		}
	case domain.BulkEditCommand:
		for id := range c.Previous {
			if updated, present, err := s.store.UpsertField(id, c.Field, c.NewValue, s.cfg.Actor); err == nil && present {
				s.coordinator.Schedule(updated, s.isProvisional(id))
			}
		}
	}
	return cmd, true
}

// CanUndo reports whether an undoable command exists.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a redoable command exists.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// ToggleAssist switches AI-assisted validation on or off.
func (s *Session) ToggleAssist(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assist = enabled
}

// AssistEnabled reports the assist toggle state.
func (s *Session) AssistEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assist
}

// Validations returns all stored advisory results keyed by record id.
func (s *Session) Validations() map[uuid.UUID][]domain.FieldValidation {
	return s.orchestrator.Results()
}

// DismissValidation clears the advisory results for one record.
func (s *Session) DismissValidation(id uuid.UUID) {
	s.orchestrator.Dismiss(id)
}

// AuditLog returns the append-only change log for one record, newest-first.
func (s *Session) AuditLog(ctx context.Context, productID uuid.UUID) ([]domain.AuditEntry, error) {
	if s.cfg.Audit == nil {
		return nil, nil
	}
	return s.cfg.Audit.ListByProduct(ctx, s.cfg.TenantID, productID)
}

// ProvisionalCount returns the number of rows that exist only locally (added,
// imported, or restored by undo) and are not yet durable remotely.
func (s *Session) ProvisionalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.provisional)
}

// SaveImported pushes every provisional row through the remote bulk upsert
// path, making the client-generated identifiers durable. Returns the number
// of rows saved.
func (s *Session) SaveImported(ctx context.Context) (int, error) {
	s.mu.Lock()
	var rows []domain.Product
	for _, record := range s.store.Records() {
		if _, ok := s.provisional[record.ID]; ok {
			rows = append(rows, record)
		}
	}
	s.mu.Unlock()

	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := s.cfg.Remote.BulkUpdate(ctx, s.cfg.TenantID, rows); err != nil {
		return 0, fmt.Errorf("save imported rows: %w", err)
	}

	s.mu.Lock()
	for _, record := range rows {
		delete(s.provisional, record.ID)
	}
	s.mu.Unlock()
	return len(rows), nil
}

// FlushPending forces any pending debounced write for the record to run now.
func (s *Session) FlushPending(id uuid.UUID) {
	s.coordinator.Flush(id)
}

// Close releases the session's timers and background validation runs.
func (s *Session) Close() {
	s.coordinator.Close()
	s.orchestrator.Close()
}

func (s *Session) isProvisional(id uuid.UUID) bool {
	_, ok := s.provisional[id]
	return ok
}
