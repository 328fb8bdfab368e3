package grid

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rpattn/gridsync/internal/domain"
	"github.com/rpattn/gridsync/internal/repository"

	"github.com/google/uuid"
)

const (
	// DefaultDebounceWindow is the delay after the last edit to a record
	// before its state is flushed remotely.
	DefaultDebounceWindow = 1000 * time.Millisecond
	// DefaultRequestTimeout bounds each remote persistence call.
	DefaultRequestTimeout = 10 * time.Second
)

// CoordinatorConfig wires a Coordinator to its tenant, remote store, and the
// owning session's callbacks.
type CoordinatorConfig struct {
	TenantID uuid.UUID
	Remote   repository.ProductRepository
	Window   time.Duration
	Timeout  time.Duration

	// OnError surfaces a user-visible notification for a failed write.
	OnError func(err error)
	// OnReload replaces the session's store contents after failure recovery.
	OnReload func(records []domain.Product)
	// OnPersisted reports a record whose write was accepted remotely.
	OnPersisted func(id uuid.UUID)
}

type pendingWrite struct {
	timer       *time.Timer
	record      domain.Product
	provisional bool
}

// Coordinator debounces per-record writes to the remote store. Rapid edits to
// the same record within the window collapse into one write carrying the
// latest state; scheduling always replaces any pending timer for that id, so
// at most one timer per record exists. A failed write triggers a full store
// reload from the source of truth, discarding every unpersisted optimistic
// edit — conservative consistency recovery, not a per-record rollback.
type Coordinator struct {
	cfg CoordinatorConfig

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingWrite
	closed  bool
}

// NewCoordinator creates a coordinator with defaults applied.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultDebounceWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	return &Coordinator{
		cfg:     cfg,
		pending: make(map[uuid.UUID]*pendingWrite),
	}
}

// Schedule arms (or re-arms) the debounce timer for the record, capturing its
// state at this moment. Provisional rows flush through the bulk upsert path
// instead of update, since the remote store has not seen their ids yet.
func (c *Coordinator) Schedule(record domain.Product, provisional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if entry, ok := c.pending[record.ID]; ok {
		entry.timer.Stop()
	}
	entry := &pendingWrite{record: record, provisional: provisional}
	id := record.ID
	entry.timer = time.AfterFunc(c.cfg.Window, func() { c.flush(id) })
	c.pending[id] = entry
}

// Cancel drops any pending timer for the record, e.g. when it is deleted. An
// already in-flight request is allowed to complete.
func (c *Coordinator) Cancel(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.pending[id]; ok {
		entry.timer.Stop()
		delete(c.pending, id)
	}
}

// Flush forces an immediate write of the pending state for the record, if
// any. Used by tests and by explicit save gestures.
func (c *Coordinator) Flush(id uuid.UUID) {
	c.flush(id)
}

// PendingCount returns the number of armed timers.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close cancels all pending timers. In-flight requests may still complete.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, entry := range c.pending {
		entry.timer.Stop()
		delete(c.pending, id)
	}
}

func (c *Coordinator) flush(id uuid.UUID) {
	c.mu.Lock()
	entry, ok := c.pending[id]
	if ok {
		entry.timer.Stop()
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	var err error
	if entry.provisional {
		_, err = c.cfg.Remote.BulkUpdate(ctx, c.cfg.TenantID, []domain.Product{entry.record})
	} else {
		_, err = c.cfg.Remote.Update(ctx, c.cfg.TenantID, entry.record)
	}
	if err != nil {
		log.Printf("[grid] write for record %s failed: %v", id, err)
		if c.cfg.OnError != nil {
			c.cfg.OnError(err)
		}
		c.recover()
		return
	}
	if c.cfg.OnPersisted != nil {
		c.cfg.OnPersisted(id)
	}
}

// recover reloads the entire store from the remote source of truth and drops
// every pending timer: the reload discards unpersisted optimistic edits, so
// flushing them afterwards would resurrect discarded state.
func (c *Coordinator) recover() {
	c.mu.Lock()
	for id, entry := range c.pending {
		entry.timer.Stop()
		delete(c.pending, id)
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	records, err := c.cfg.Remote.List(ctx, c.cfg.TenantID)
	if err != nil {
		log.Printf("[grid] reload after failed write also failed: %v", err)
		if c.cfg.OnError != nil {
			c.cfg.OnError(err)
		}
		return
	}
	if c.cfg.OnReload != nil {
		c.cfg.OnReload(records)
	}
}
