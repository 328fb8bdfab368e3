package grid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

func TestOrchestratorSupersedingRunDiscardsStaleResult(t *testing.T) {
	record := testProduct("widget", 10, 1)

	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})
	validator := &stubValidator{fn: func(_ context.Context, _ domain.Product) ([]domain.FieldValidation, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call == 1 {
			close(started)
			<-release
			return []domain.FieldValidation{{Field: "name", Issue: "stale"}}, nil
		}
		return []domain.FieldValidation{{Field: "name", Issue: "fresh"}}, nil
	}}

	o := NewOrchestrator(uuid.New(), validator, time.Second)
	defer o.Close()

	o.Trigger(record)
	<-started
	o.Trigger(record)

	waitFor(t, "fresh result", func() bool {
		results := o.ResultsFor(record.ID)
		return len(results) == 1 && results[0].Issue == "fresh"
	})

	// Let the stale run finish; its result must be ignored.
	close(release)
	time.Sleep(50 * time.Millisecond)
	results := o.ResultsFor(record.ID)
	if len(results) != 1 || results[0].Issue != "fresh" {
		t.Fatalf("stale run overwrote the fresh result: %v", results)
	}
}

func TestOrchestratorSwallowsValidationFailures(t *testing.T) {
	record := testProduct("widget", 10, 1)
	called := make(chan struct{})
	validator := &stubValidator{fn: func(_ context.Context, _ domain.Product) ([]domain.FieldValidation, error) {
		close(called)
		return nil, errors.New("model unavailable")
	}}

	o := NewOrchestrator(uuid.New(), validator, time.Second)
	defer o.Close()

	o.Trigger(record)
	<-called
	time.Sleep(20 * time.Millisecond)

	if results := o.ResultsFor(record.ID); len(results) != 0 {
		t.Fatalf("failed run must store no results, got %v", results)
	}
}

func TestOrchestratorDismissClearsResults(t *testing.T) {
	record := testProduct("widget", 10, 1)
	validator := &stubValidator{fn: func(_ context.Context, _ domain.Product) ([]domain.FieldValidation, error) {
		return []domain.FieldValidation{{Field: "price", Issue: "too high"}}, nil
	}}

	o := NewOrchestrator(uuid.New(), validator, time.Second)
	defer o.Close()

	o.Trigger(record)
	waitFor(t, "stored result", func() bool { return len(o.ResultsFor(record.ID)) == 1 })

	o.Dismiss(record.ID)
	if results := o.ResultsFor(record.ID); len(results) != 0 {
		t.Fatalf("dismiss must clear results, got %v", results)
	}
	if all := o.Results(); len(all) != 0 {
		t.Fatalf("expected empty result map, got %v", all)
	}
}

func TestOrchestratorNilValidatorIsInert(t *testing.T) {
	o := NewOrchestrator(uuid.New(), nil, time.Second)
	defer o.Close()
	o.Trigger(testProduct("widget", 10, 1))
	if len(o.Results()) != 0 {
		t.Fatalf("nil validator must produce no results")
	}
}
