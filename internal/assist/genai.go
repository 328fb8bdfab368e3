package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// GenAIValidator asks a Gemini model to review a single product row and
// report per-field issues and suggestions.
type GenAIValidator struct {
	client *genai.Client
	model  string
}

// NewGenAIValidator creates a model-backed validator using the Gemini API.
func NewGenAIValidator(ctx context.Context, apiKey, model string) (*GenAIValidator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIValidator{client: client, model: model}, nil
}

// Validate sends the product to the model and parses its JSON verdict.
// Results are advisory only; callers treat any error as a swallowed miss.
func (v *GenAIValidator) Validate(ctx context.Context, tenantID uuid.UUID, product domain.Product) ([]domain.FieldValidation, error) {
	prompt := buildPrompt(product)

	resp, err := v.client.Models.GenerateContent(ctx, v.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("generate validation for %s: %w", product.ID, err)
	}

	raw := stripCodeFence(resp.Text())
	var parsed []domain.FieldValidation
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse validation response for %s: %w", product.ID, err)
	}

	results := parsed[:0]
	for _, item := range parsed {
		if _, ok := domain.FieldByName(item.Field); !ok {
			continue
		}
		if item.Issue == "" && item.Suggestion == "" {
			continue
		}
		results = append(results, item)
	}
	return results, nil
}

func buildPrompt(product domain.Product) string {
	var sb strings.Builder
	sb.WriteString("You are reviewing a product catalogue row for data quality problems.\n")
	sb.WriteString("Fields:\n")
	for _, field := range domain.ProductFields() {
		if !field.Editable {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", field.Name, product.FormatField(field.Name))
	}
	sb.WriteString("\nReport problems as a JSON array, one object per field with an issue: ")
	sb.WriteString(`[{"field": "name", "issue": "...", "suggestion": "...", "confidence": 0.8}]`)
	sb.WriteString("\nOnly include fields that actually have a problem. Respond with the JSON array only.")
	return sb.String()
}

// stripCodeFence removes a surrounding markdown fence that models often wrap
// JSON responses in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
