package assist

import (
	"context"
	"strings"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

// HeuristicValidator is the keyless fallback: a fixed set of catalogue
// quality rules that approximate what the model-backed validator flags.
type HeuristicValidator struct{}

// NewHeuristicValidator creates the rule-based validator.
func NewHeuristicValidator() *HeuristicValidator {
	return &HeuristicValidator{}
}

// Validate applies the rule set to a single product.
func (v *HeuristicValidator) Validate(_ context.Context, _ uuid.UUID, product domain.Product) ([]domain.FieldValidation, error) {
	var results []domain.FieldValidation

	if len(strings.TrimSpace(product.Name)) < 5 {
		results = append(results, domain.FieldValidation{
			Field:      "name",
			Issue:      "Product name is too short to be descriptive",
			Suggestion: "Use a full product name of at least 5 characters",
			Confidence: 0.9,
		})
	}

	if product.Price < 1 {
		results = append(results, domain.FieldValidation{
			Field:      "price",
			Issue:      "Price is below the plausible minimum",
			Suggestion: "Check the price; values under 1.00 are usually data entry errors",
			Confidence: 0.85,
		})
	} else if product.Price > 500 {
		results = append(results, domain.FieldValidation{
			Field:      "price",
			Issue:      "Price is unusually high for this catalogue",
			Suggestion: "Confirm the price; values over 500.00 are rare",
			Confidence: 0.7,
		})
	}

	if len(strings.TrimSpace(product.Description)) < 20 {
		results = append(results, domain.FieldValidation{
			Field:      "description",
			Issue:      "Description is too short",
			Suggestion: "Add at least a sentence describing the product",
			Confidence: 0.8,
		})
	}

	if strings.Contains(strings.ToLower(product.Name), "cable") && product.Category != "Accessories" {
		results = append(results, domain.FieldValidation{
			Field:      "category",
			Suggestion: "Accessories",
			Confidence: 0.75,
		})
	}

	return results, nil
}
