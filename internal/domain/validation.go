package domain

// FieldValidation is one advisory finding produced by the external validation
// capability for a single field. Confidence is in [0, 1].
type FieldValidation struct {
	Field      string  `json:"field"`
	Issue      string  `json:"issue,omitempty"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}
