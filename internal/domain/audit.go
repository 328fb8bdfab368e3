package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only record of an accepted field change. Entries
// are written by the remote store on update and read back newest-first.
type AuditEntry struct {
	ID        int64     `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ProductID uuid.UUID `json:"product_id"`
	Actor     string    `json:"actor"`
	Field     string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}
