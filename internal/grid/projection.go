package grid

import (
	"sort"
	"strings"

	"github.com/rpattn/gridsync/internal/domain"
)

// Project derives the displayed sequence from the store contents. It is a
// pure function of its inputs: a case-insensitive substring search across the
// string form of every field, then a stable single-column sort. SortNone (or
// an empty sort field) preserves store order; ties keep store order.
func Project(records []domain.Product, search string, sortField string, direction domain.SortDirection) []domain.Product {
	out := make([]domain.Product, 0, len(records))

	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		out = append(out, records...)
	} else {
		for _, record := range records {
			if matchesQuery(record, query) {
				out = append(out, record)
			}
		}
	}

	if sortField != "" && direction != domain.SortNone && direction != "" {
		sort.SliceStable(out, func(i, j int) bool {
			cmp := domain.CompareField(out[i], out[j], sortField)
			if direction == domain.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	return out
}

func matchesQuery(record domain.Product, query string) bool {
	for _, field := range domain.ProductFields() {
		if strings.Contains(strings.ToLower(record.FormatField(field.Name)), query) {
			return true
		}
	}
	return false
}
