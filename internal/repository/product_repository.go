package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, tenant_id, sku, name, description, category, price, stock, link, is_active, created_at, updated_at, updated_by`

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a PostgreSQL-backed product store. Update
// records per-field audit entries in the same transaction as the row change.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) List(ctx context.Context, tenantID uuid.UUID) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE tenant_id = $1 ORDER BY created_at, id`, productColumns), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, tenantID uuid.UUID, product domain.Product) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO products (id, tenant_id, sku, name, description, category, price, stock, link, is_active, created_at, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING %s`, productColumns),
		product.ID, tenantID, product.SKU, product.Name, product.Description, product.Category,
		product.Price, product.Stock, product.Link, product.Active,
		product.CreatedAt, product.UpdatedAt, product.UpdatedBy)
	created, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *productRepository) Update(ctx context.Context, tenantID uuid.UUID, product domain.Product) (domain.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, productColumns),
		tenantID, product.ID)
	existing, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("load product for update: %w", err)
	}

	updated := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE products
		SET sku = $3, name = $4, description = $5, category = $6, price = $7,
		    stock = $8, link = $9, is_active = $10, updated_at = $11, updated_by = $12
		WHERE tenant_id = $1 AND id = $2
		RETURNING %s`, productColumns),
		tenantID, product.ID, product.SKU, product.Name, product.Description, product.Category,
		product.Price, product.Stock, product.Link, product.Active,
		product.UpdatedAt, product.UpdatedBy)
	result, err := scanProduct(updated)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	for _, field := range domain.EditableFieldNames() {
		oldValue := existing.FormatField(field)
		newValue := result.FormatField(field)
		if oldValue == newValue {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_audit_log (tenant_id, product_id, actor, field_name, old_value, new_value)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			tenantID, product.ID, product.UpdatedBy, field, oldValue, newValue); err != nil {
			return domain.Product{}, fmt.Errorf("record audit entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Product{}, fmt.Errorf("commit update: %w", err)
	}
	return result, nil
}

func (r *productRepository) Delete(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) BulkUpdate(ctx context.Context, tenantID uuid.UUID, products []domain.Product) ([]domain.Product, error) {
	if len(products) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bulk update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := make([]domain.Product, 0, len(products))
	for _, product := range products {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO products (id, tenant_id, sku, name, description, category, price, stock, link, is_active, created_at, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE
			SET sku = EXCLUDED.sku, name = EXCLUDED.name, description = EXCLUDED.description,
			    category = EXCLUDED.category, price = EXCLUDED.price, stock = EXCLUDED.stock,
			    link = EXCLUDED.link, is_active = EXCLUDED.is_active,
			    updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
			RETURNING %s`, productColumns),
			product.ID, tenantID, product.SKU, product.Name, product.Description, product.Category,
			product.Price, product.Stock, product.Link, product.Active,
			product.CreatedAt, product.UpdatedAt, product.UpdatedBy)
		upserted, err := scanProduct(row)
		if err != nil {
			return nil, fmt.Errorf("bulk upsert product %s: %w", product.ID, err)
		}
		results = append(results, upserted)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bulk update: %w", err)
	}
	return results, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	var tenantID uuid.UUID
	err := row.Scan(
		&product.ID, &tenantID, &product.SKU, &product.Name, &product.Description,
		&product.Category, &product.Price, &product.Stock, &product.Link, &product.Active,
		&product.CreatedAt, &product.UpdatedAt, &product.UpdatedBy)
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}
