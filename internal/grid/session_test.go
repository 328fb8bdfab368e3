package grid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

func newTestSession(t *testing.T, repo *stubProductRepo) *Session {
	t.Helper()
	session := NewSession(SessionConfig{
		TenantID:       uuid.New(),
		Actor:          "tester",
		Remote:         repo,
		Audit:          &stubAuditRepo{},
		DebounceWindow: time.Hour,
		RequestTimeout: time.Second,
		HistoryLimit:   10,
	})
	t.Cleanup(session.Close)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return session
}

func TestSessionEditUndoRedoSequence(t *testing.T) {
	record := testProduct("Old", 5, 1)
	repo := newStubProductRepo(record)
	session := newTestSession(t, repo)

	if err := session.EditCell(record.ID, "name", "New"); err != nil {
		t.Fatalf("name edit failed: %v", err)
	}
	if err := session.EditCell(record.ID, "price", 7); err != nil {
		t.Fatalf("price edit failed: %v", err)
	}

	current := findRecord(t, session, record.ID)
	if current.Name != "New" || current.Price != 7 {
		t.Fatalf("edits not applied: %+v", current)
	}

	if _, ok := session.Undo(); !ok {
		t.Fatalf("first undo failed")
	}
	current = findRecord(t, session, record.ID)
	if current.Price != 5 || current.Name != "New" {
		t.Fatalf("first undo should only revert price: %+v", current)
	}

	if _, ok := session.Undo(); !ok {
		t.Fatalf("second undo failed")
	}
	current = findRecord(t, session, record.ID)
	if current.Name != "Old" {
		t.Fatalf("second undo should revert name: %+v", current)
	}

	if _, ok := session.Redo(); !ok {
		t.Fatalf("redo failed")
	}
	current = findRecord(t, session, record.ID)
	if current.Name != "New" {
		t.Fatalf("redo should restore name: %+v", current)
	}
}

func TestSessionEditWithEqualValueIsNoOp(t *testing.T) {
	record := testProduct("Widget", 5, 1)
	repo := newStubProductRepo(record)
	session := newTestSession(t, repo)

	if err := session.EditCell(record.ID, "name", "Widget"); err != nil {
		t.Fatalf("no-op edit returned error: %v", err)
	}
	if session.CanUndo() {
		t.Fatalf("no-op edit must not record history")
	}
}

func TestSessionEditAbsentRecord(t *testing.T) {
	repo := newStubProductRepo(testProduct("a", 1, 1))
	session := newTestSession(t, repo)

	err := session.EditCell(uuid.New(), "name", "ghost")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSessionAddRowUndoRedo(t *testing.T) {
	repo := newStubProductRepo()
	session := newTestSession(t, repo)

	row, err := session.AddRow()
	if err != nil {
		t.Fatalf("add row failed: %v", err)
	}
	if !row.Active {
		t.Fatalf("new rows default to active")
	}
	if session.ProvisionalCount() != 1 {
		t.Fatalf("new row must be provisional")
	}

	if _, ok := session.Undo(); !ok {
		t.Fatalf("undo of add failed")
	}
	if len(session.Projection()) != 0 {
		t.Fatalf("undo of add must remove the row")
	}
	if session.ProvisionalCount() != 0 {
		t.Fatalf("undo of add must clear the provisional mark")
	}

	if _, ok := session.Redo(); !ok {
		t.Fatalf("redo of add failed")
	}
	if len(session.Projection()) != 1 {
		t.Fatalf("redo of add must reinsert the row")
	}
	if session.ProvisionalCount() != 1 {
		t.Fatalf("redone row is provisional again")
	}
}

func TestSessionDeleteSelectedIsRemoteFirst(t *testing.T) {
	a := testProduct("alpha", 1, 1)
	b := testProduct("beta", 2, 2)
	repo := newStubProductRepo(a, b)
	session := newTestSession(t, repo)

	// A provisional row never reaches the remote delete path.
	provisional, err := session.AddRow()
	if err != nil {
		t.Fatalf("add row failed: %v", err)
	}

	session.SetSelection([]uuid.UUID{a.ID, provisional.ID})
	removed, err := session.DeleteSelected(context.Background())
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 rows removed, got %d", removed)
	}
	if len(repo.deletes) != 1 || repo.deletes[0] != a.ID {
		t.Fatalf("expected exactly one remote delete for %s, got %v", a.ID, repo.deletes)
	}
	if len(session.Projection()) != 1 {
		t.Fatalf("expected only beta to survive")
	}
	if len(session.Selection()) != 0 {
		t.Fatalf("selection must clear after delete")
	}
}

func TestSessionDeleteFailureKeepsRowsLocally(t *testing.T) {
	a := testProduct("alpha", 1, 1)
	repo := newStubProductRepo(a)
	repo.deleteErr = errors.New("remote refused")
	session := newTestSession(t, repo)

	session.SetSelection([]uuid.UUID{a.ID})
	removed, err := session.DeleteSelected(context.Background())
	if err == nil {
		t.Fatalf("expected delete error")
	}
	if removed != 0 {
		t.Fatalf("failed deletes must not remove rows, got %d", removed)
	}
	if len(session.Projection()) != 1 {
		t.Fatalf("row must survive a failed remote delete")
	}
}

func TestSessionUndoDeleteReinsertsLocallyAsProvisional(t *testing.T) {
	a := testProduct("alpha", 1, 1)
	repo := newStubProductRepo(a)
	session := newTestSession(t, repo)

	session.SetSelection([]uuid.UUID{a.ID})
	if _, err := session.DeleteSelected(context.Background()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := repo.get(a.ID); ok {
		t.Fatalf("remote row should be gone")
	}

	if _, ok := session.Undo(); !ok {
		t.Fatalf("undo of delete failed")
	}
	if len(session.Projection()) != 1 {
		t.Fatalf("undo of delete must reinsert locally")
	}
	if session.ProvisionalCount() != 1 {
		t.Fatalf("reinserted row must be provisional")
	}
	// Local only: the server-side row is not recreated by undo.
	if _, ok := repo.get(a.ID); ok {
		t.Fatalf("undo must not recreate the remote row")
	}
}

func TestSessionBulkSetFieldUndoIsAtomic(t *testing.T) {
	a := testProduct("alpha", 1, 1)
	b := testProduct("beta", 2, 2)
	repo := newStubProductRepo(a, b)
	session := newTestSession(t, repo)

	session.SetSelection([]uuid.UUID{a.ID, b.ID})
	updated, err := session.BulkSetField("price", 100)
	if err != nil {
		t.Fatalf("bulk set failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}
	for _, record := range session.Projection() {
		if record.Price != 100 {
			t.Fatalf("bulk set missed record %s", record.ID)
		}
	}

	if _, ok := session.Undo(); !ok {
		t.Fatalf("bulk undo failed")
	}
	if got := findRecord(t, session, a.ID); got.Price != 1 {
		t.Fatalf("bulk undo must restore alpha's price, got %v", got.Price)
	}
	if got := findRecord(t, session, b.ID); got.Price != 2 {
		t.Fatalf("bulk undo must restore beta's price, got %v", got.Price)
	}
}

func TestSessionSortCycle(t *testing.T) {
	repo := newStubProductRepo(testProduct("a", 1, 1))
	session := newTestSession(t, repo)

	if err := session.SortBy("price"); err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	if _, dir := session.SortState(); dir != domain.SortAsc {
		t.Fatalf("first click should sort ASC, got %s", dir)
	}
	session.SortBy("price")
	if _, dir := session.SortState(); dir != domain.SortDesc {
		t.Fatalf("second click should sort DESC, got %s", dir)
	}
	session.SortBy("price")
	if _, dir := session.SortState(); dir != domain.SortNone {
		t.Fatalf("third click should clear the sort, got %s", dir)
	}

	session.SortBy("price")
	session.SortBy("name")
	if field, dir := session.SortState(); field != "name" || dir != domain.SortAsc {
		t.Fatalf("new column should reset to ASC, got %s %s", field, dir)
	}

	if err := session.SortBy("bogus"); err == nil {
		t.Fatalf("expected error for unknown sort field")
	}
}

func TestSessionWriteFailureReloadDiscardsOptimisticEdits(t *testing.T) {
	a := testProduct("alpha", 10, 1)
	b := testProduct("beta", 20, 2)
	repo := newStubProductRepo(a, b)
	repo.updateErr = errors.New("remote write refused")

	var messages []string
	session := NewSession(SessionConfig{
		TenantID:       uuid.New(),
		Actor:          "tester",
		Remote:         repo,
		DebounceWindow: time.Hour,
		RequestTimeout: time.Second,
		HistoryLimit:   10,
		Notify:         func(message string) { messages = append(messages, message) },
	})
	t.Cleanup(session.Close)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := session.EditCell(a.ID, "price", 99); err != nil {
		t.Fatalf("edit a failed: %v", err)
	}
	if err := session.EditCell(b.ID, "price", 77); err != nil {
		t.Fatalf("edit b failed: %v", err)
	}

	session.FlushPending(a.ID)

	if len(messages) == 0 {
		t.Fatalf("expected a save-failure notification")
	}
	// The reload restores remote truth for both records, including B's
	// unflushed optimistic edit.
	if got := findRecord(t, session, a.ID); got.Price != 10 {
		t.Fatalf("alpha should revert to remote truth, got %v", got.Price)
	}
	if got := findRecord(t, session, b.ID); got.Price != 20 {
		t.Fatalf("beta's optimistic edit should be discarded, got %v", got.Price)
	}
}

func TestSessionSaveImportedPushesProvisionalRows(t *testing.T) {
	repo := newStubProductRepo()
	session := newTestSession(t, repo)

	row, err := session.AddRow()
	if err != nil {
		t.Fatalf("add row failed: %v", err)
	}
	if err := session.EditCell(row.ID, "name", "Imported widget"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	saved, err := session.SaveImported(context.Background())
	if err != nil {
		t.Fatalf("save imported failed: %v", err)
	}
	if saved != 1 {
		t.Fatalf("expected 1 row saved, got %d", saved)
	}
	if session.ProvisionalCount() != 0 {
		t.Fatalf("saved rows must drop their provisional mark")
	}
	remote, ok := repo.get(row.ID)
	if !ok {
		t.Fatalf("row missing remotely after save")
	}
	if remote.Name != "Imported widget" {
		t.Fatalf("remote row carries stale state: %+v", remote)
	}
}

func TestSessionAssistTriggersValidation(t *testing.T) {
	record := testProduct("gizmo", 10, 1)
	repo := newStubProductRepo(record)
	validated := make(chan domain.Product, 2)
	session := NewSession(SessionConfig{
		TenantID: uuid.New(),
		Actor:    "tester",
		Remote:   repo,
		Validator: &stubValidator{fn: func(_ context.Context, product domain.Product) ([]domain.FieldValidation, error) {
			validated <- product
			return []domain.FieldValidation{{Field: "name", Issue: "check"}}, nil
		}},
		DebounceWindow: time.Hour,
		RequestTimeout: time.Second,
		HistoryLimit:   10,
	})
	t.Cleanup(session.Close)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Assist off: edits must not trigger validation.
	if err := session.EditCell(record.ID, "name", "quiet"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	select {
	case <-validated:
		t.Fatalf("validation fired with assist disabled")
	case <-time.After(30 * time.Millisecond):
	}

	session.ToggleAssist(true)
	if err := session.EditCell(record.ID, "name", "loud"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	select {
	case product := <-validated:
		if product.Name != "loud" {
			t.Fatalf("validation must see the post-edit record, got %q", product.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("validation did not fire with assist enabled")
	}

	waitFor(t, "stored validation", func() bool {
		return len(session.Validations()[record.ID]) == 1
	})
	session.DismissValidation(record.ID)
	if len(session.Validations()[record.ID]) != 0 {
		t.Fatalf("dismiss must clear stored validations")
	}
}

func findRecord(t *testing.T, session *Session, id uuid.UUID) domain.Product {
	t.Helper()
	for _, record := range session.Projection() {
		if record.ID == id {
			return record
		}
	}
	t.Fatalf("record %s not in projection", id)
	return domain.Product{}
}
