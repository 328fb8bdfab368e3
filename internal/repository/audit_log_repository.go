package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a PostgreSQL-backed audit log.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_audit_log (tenant_id, product_id, actor, field_name, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.TenantID, entry.ProductID, entry.Actor, entry.Field, entry.OldValue, entry.NewValue)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

func (r *auditLogRepository) ListByProduct(ctx context.Context, tenantID uuid.UUID, productID uuid.UUID) ([]domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, product_id, actor, field_name, old_value, new_value, created_at
		FROM product_audit_log
		WHERE tenant_id = $1 AND product_id = $2
		ORDER BY created_at DESC, id DESC`,
		tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.ProductID, &entry.Actor,
			&entry.Field, &entry.OldValue, &entry.NewValue, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
