package repository

import (
	"context"
	"errors"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a product id is absent from the remote store.
var ErrNotFound = errors.New("product not found")

// ProductRepository is the remote product store contract consumed by the grid
// core. List returns all records for a tenant in stable order; Update fails
// with ErrNotFound for absent ids; BulkUpdate upserts, which is how
// provisional client-generated rows become durable.
type ProductRepository interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]domain.Product, error)
	Create(ctx context.Context, tenantID uuid.UUID, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, tenantID uuid.UUID, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error
	BulkUpdate(ctx context.Context, tenantID uuid.UUID, products []domain.Product) ([]domain.Product, error)
}

// AuditLogRepository stores per-field change records, append-only. Listing
// returns entries newest-first.
type AuditLogRepository interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
	ListByProduct(ctx context.Context, tenantID uuid.UUID, productID uuid.UUID) ([]domain.AuditEntry, error)
}
