package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommandKind discriminates the command variants recorded in the history.
type CommandKind string

const (
	CommandKindEdit   CommandKind = "edit"
	CommandKindAdd    CommandKind = "add"
	CommandKindDelete CommandKind = "delete"
	CommandKindBulk   CommandKind = "bulk"
)

// Command is an immutable description of one user-initiated grid mutation.
// Commands carry copies of field values, never references into live records,
// so a later edit cannot corrupt a stored old value.
type Command interface {
	Kind() CommandKind
	CommandAt() time.Time
}

// EditCommand records a single-field cell edit.
type EditCommand struct {
	ProductID uuid.UUID
	Field     string
	OldValue  any
	NewValue  any
	At        time.Time
}

func (c EditCommand) Kind() CommandKind    { return CommandKindEdit }
func (c EditCommand) CommandAt() time.Time { return c.At }

// AddCommand records the addition of a new row.
type AddCommand struct {
	Product Product
	At      time.Time
}

func (c AddCommand) Kind() CommandKind    { return CommandKindAdd }
func (c AddCommand) CommandAt() time.Time { return c.At }

// DeleteCommand records a batch deletion. It carries the full removed records
// so undo can reinsert them atomically. Reinsertion is local only; deleted
// server-side rows are not recreated.
type DeleteCommand struct {
	Products []Product
	At       time.Time
}

func (c DeleteCommand) Kind() CommandKind    { return CommandKindDelete }
func (c DeleteCommand) CommandAt() time.Time { return c.At }

// BulkEditCommand records one field set applied across a selection. Previous
// holds the pre-edit value for every affected record, which makes bulk undo
// well-defined.
type BulkEditCommand struct {
	Field    string
	NewValue any
	Previous map[uuid.UUID]any
	At       time.Time
}

func (c BulkEditCommand) Kind() CommandKind    { return CommandKindBulk }
func (c BulkEditCommand) CommandAt() time.Time { return c.At }
