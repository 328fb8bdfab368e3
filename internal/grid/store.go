package grid

import (
	"fmt"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

// Store is the canonical in-memory ordered collection of products for one
// tenant session. It exclusively owns record lifetime; callers receive copies.
// Store is not safe for concurrent use on its own — the owning Session
// serializes access.
type Store struct {
	records []domain.Product
	index   map[uuid.UUID]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[uuid.UUID]int)}
}

// Load replaces the entire collection. Used on the initial fetch and on
// failure-recovery reloads from the remote source of truth.
func (s *Store) Load(records []domain.Product) {
	s.records = make([]domain.Product, 0, len(records))
	s.index = make(map[uuid.UUID]int, len(records))
	for _, record := range records {
		if _, exists := s.index[record.ID]; exists {
			continue
		}
		s.index[record.ID] = len(s.records)
		s.records = append(s.records, record)
	}
}

// Records returns a copy of the collection in store order.
func (s *Store) Records() []domain.Product {
	clone := make([]domain.Product, len(s.records))
	copy(clone, s.records)
	return clone
}

// Get returns the record with the given identifier.
func (s *Store) Get(id uuid.UUID) (domain.Product, bool) {
	idx, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.records[idx], true
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// UpsertField sets a single field on the identified record, stamping the
// update metadata. Absent identifiers are a silent no-op (ok=false); callers
// are expected to have validated presence.
func (s *Store) UpsertField(id uuid.UUID, field string, value any, actor string) (domain.Product, bool, error) {
	idx, ok := s.index[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	updated, err := s.records[idx].WithField(field, value, actor)
	if err != nil {
		return domain.Product{}, false, err
	}
	s.records[idx] = updated
	return updated, true, nil
}

// Insert appends a record. The identifier must not collide with an existing
// one; provisional client-generated identifiers remain in place until the
// remote store accepts the row.
func (s *Store) Insert(record domain.Product) error {
	if _, exists := s.index[record.ID]; exists {
		return fmt.Errorf("duplicate record identifier %s", record.ID)
	}
	s.index[record.ID] = len(s.records)
	s.records = append(s.records, record)
	return nil
}

// RemoveMany deletes the identified records and returns the removed ones in
// store order. Unknown identifiers are ignored.
func (s *Store) RemoveMany(ids []uuid.UUID) []domain.Product {
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var removed []domain.Product
	kept := s.records[:0]
	for _, record := range s.records {
		if _, gone := drop[record.ID]; gone {
			removed = append(removed, record)
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept
	s.index = make(map[uuid.UUID]int, len(s.records))
	for i, record := range s.records {
		s.index[record.ID] = i
	}
	return removed
}

// BulkSetField applies one field value across the identified records and
// returns the pre-edit value of every record it touched, keyed by identifier.
// Absent identifiers are skipped.
func (s *Store) BulkSetField(ids []uuid.UUID, field string, value any, actor string) (map[uuid.UUID]any, error) {
	previous := make(map[uuid.UUID]any, len(ids))
	for _, id := range ids {
		idx, ok := s.index[id]
		if !ok {
			continue
		}
		old := s.records[idx].Value(field)
		updated, err := s.records[idx].WithField(field, value, actor)
		if err != nil {
			return previous, err
		}
		s.records[idx] = updated
		previous[id] = old
	}
	return previous, nil
}
