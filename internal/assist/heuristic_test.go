package assist

import (
	"context"
	"testing"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

func TestHeuristicValidatorFlagsProblemFields(t *testing.T) {
	product := domain.Product{
		ID:          uuid.New(),
		Name:        "Ab",
		Description: "short",
		Price:       0.5,
	}

	results, err := NewHeuristicValidator().Validate(context.Background(), uuid.New(), product)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}

	flagged := map[string]bool{}
	for _, result := range results {
		flagged[result.Field] = true
		if result.Confidence <= 0 || result.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", result)
		}
	}
	for _, field := range []string{"name", "price", "description"} {
		if !flagged[field] {
			t.Fatalf("expected %s to be flagged, got %v", field, results)
		}
	}
}

func TestHeuristicValidatorSuggestsAccessoriesForCables(t *testing.T) {
	product := domain.Product{
		ID:          uuid.New(),
		Name:        "HDMI Cable 2m",
		Description: "A braided high speed HDMI cable",
		Category:    "Electronics",
		Price:       12,
	}

	results, err := NewHeuristicValidator().Validate(context.Background(), uuid.New(), product)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	var suggestion string
	for _, result := range results {
		if result.Field == "category" {
			suggestion = result.Suggestion
		}
	}
	if suggestion != "Accessories" {
		t.Fatalf("expected Accessories suggestion, got %q", suggestion)
	}
}

func TestHeuristicValidatorPassesCleanProduct(t *testing.T) {
	product := domain.Product{
		ID:          uuid.New(),
		Name:        "Mechanical Keyboard",
		Description: "Tenkeyless mechanical keyboard with hot-swappable switches",
		Category:    "Accessories",
		Price:       89.99,
	}

	results, err := NewHeuristicValidator().Validate(context.Background(), uuid.New(), product)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no findings, got %v", results)
	}
}
