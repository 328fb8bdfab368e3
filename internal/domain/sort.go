package domain

// SortDirection represents the ordering applied to the view projection.
// SortNone restores store order.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
	SortNone SortDirection = "NONE"
)

// NextDirection cycles a repeated click on the same column through
// NONE -> ASC -> DESC -> NONE.
func NextDirection(current SortDirection) SortDirection {
	switch current {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}
