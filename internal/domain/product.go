package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldType represents the scalar type of a product field.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeFloat   FieldType = "float"
	FieldTypeInteger FieldType = "integer"
	FieldTypeBoolean FieldType = "boolean"
)

// FieldDefinition describes one column of the product grid.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Editable bool      `json:"editable"`
}

// productFields is the canonical column order of the grid. System-maintained
// columns (id, created_at, updated_at, updated_by) are not editable.
var productFields = []FieldDefinition{
	{Name: "id", Type: FieldTypeText, Editable: false},
	{Name: "sku", Type: FieldTypeText, Editable: true},
	{Name: "name", Type: FieldTypeText, Editable: true},
	{Name: "description", Type: FieldTypeText, Editable: true},
	{Name: "category", Type: FieldTypeText, Editable: true},
	{Name: "price", Type: FieldTypeFloat, Editable: true},
	{Name: "stock", Type: FieldTypeInteger, Editable: true},
	{Name: "link", Type: FieldTypeText, Editable: true},
	{Name: "is_active", Type: FieldTypeBoolean, Editable: true},
	{Name: "created_at", Type: FieldTypeText, Editable: false},
	{Name: "updated_at", Type: FieldTypeText, Editable: false},
	{Name: "updated_by", Type: FieldTypeText, Editable: false},
}

// Product represents one editable row of the grid.
type Product struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Link        string    `json:"link"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   string    `json:"updated_by"`
}

// NewProduct creates an empty product with a provisional identifier. The
// identifier is generated client-side and only becomes durable once the remote
// store accepts the row; until then it must be treated as provisional.
func NewProduct(actor string) Product {
	now := time.Now()
	return Product{
		ID:        uuid.New(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: actor,
	}
}

// ProductFields returns the grid columns in canonical order.
func ProductFields() []FieldDefinition {
	clone := make([]FieldDefinition, len(productFields))
	copy(clone, productFields)
	return clone
}

// EditableFieldNames returns the names of the user-editable columns in order.
func EditableFieldNames() []string {
	names := make([]string, 0, len(productFields))
	for _, field := range productFields {
		if field.Editable {
			names = append(names, field.Name)
		}
	}
	return names
}

// FieldByName looks up a column definition by name.
func FieldByName(name string) (FieldDefinition, bool) {
	for _, field := range productFields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// Value returns the current value of the named field.
func (p Product) Value(field string) any {
	switch field {
	case "id":
		return p.ID
	case "sku":
		return p.SKU
	case "name":
		return p.Name
	case "description":
		return p.Description
	case "category":
		return p.Category
	case "price":
		return p.Price
	case "stock":
		return p.Stock
	case "link":
		return p.Link
	case "is_active":
		return p.Active
	case "created_at":
		return p.CreatedAt
	case "updated_at":
		return p.UpdatedAt
	case "updated_by":
		return p.UpdatedBy
	default:
		return nil
	}
}

// WithField returns a copy of the product with the named editable field set
// and the update metadata stamped. Values are coerced to the field's type.
func (p Product) WithField(field string, value any, actor string) (Product, error) {
	def, ok := FieldByName(field)
	if !ok {
		return p, fmt.Errorf("unknown field %q", field)
	}
	if !def.Editable {
		return p, fmt.Errorf("field %q is not editable", field)
	}

	updated := p
	switch field {
	case "sku":
		updated.SKU = coerceText(value)
	case "name":
		updated.Name = coerceText(value)
	case "description":
		updated.Description = coerceText(value)
	case "category":
		updated.Category = coerceText(value)
	case "link":
		updated.Link = coerceText(value)
	case "price":
		f, err := coerceFloat(value)
		if err != nil {
			return p, fmt.Errorf("field price: %w", err)
		}
		updated.Price = f
	case "stock":
		n, err := coerceInt(value)
		if err != nil {
			return p, fmt.Errorf("field stock: %w", err)
		}
		updated.Stock = n
	case "is_active":
		updated.Active = coerceBool(value)
	}
	updated.UpdatedAt = time.Now()
	updated.UpdatedBy = actor
	return updated, nil
}

// FormatField renders the named field as the string used for export and for
// text search. Booleans serialize as "true"/"false", timestamps as RFC3339.
func (p Product) FormatField(field string) string {
	switch value := p.Value(field).(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case uuid.UUID:
		return value.String()
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// ParseFieldValue interprets a raw cell string for the named field using the
// import leniency rules: malformed numerics default to zero, booleans are true
// only for the literals "true" and "1", text passes through verbatim.
func ParseFieldValue(field string, raw string) any {
	def, ok := FieldByName(field)
	if !ok {
		return raw
	}
	raw = strings.TrimSpace(raw)
	switch def.Type {
	case FieldTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return f
	case FieldTypeInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
				return int(f)
			}
			return 0
		}
		return n
	case FieldTypeBoolean:
		return raw == "true" || raw == "1"
	default:
		return raw
	}
}

// CompareField orders two products by the named field. Values that cannot be
// compared numerically fall back to their string form.
func CompareField(a, b Product, field string) int {
	def, ok := FieldByName(field)
	if ok {
		switch def.Type {
		case FieldTypeFloat, FieldTypeInteger:
			av, aerr := coerceFloat(a.Value(field))
			bv, berr := coerceFloat(b.Value(field))
			if aerr == nil && berr == nil {
				switch {
				case av < bv:
					return -1
				case av > bv:
					return 1
				default:
					return 0
				}
			}
		case FieldTypeBoolean:
			av := coerceBool(a.Value(field))
			bv := coerceBool(b.Value(field))
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(a.FormatField(field), b.FormatField(field))
}

func coerceText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("unable to coerce %q to float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unable to coerce %T to float", value)
	}
}

func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			if f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64); ferr == nil {
				return int(f), nil
			}
			return 0, fmt.Errorf("unable to coerce %q to integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unable to coerce %T to integer", value)
	}
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed == "true" || trimmed == "1"
	default:
		return false
	}
}
