package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/inventory/internal/models"
	"github.com/iudanet/inventory/internal/server/storage"
)

var _ storage.ProductStorage = (*Storage)(nil)

const productColumns = `id, name, description, price, quantity, created_by, created_at`

// CreateProduct saves a new product
func (s *Storage) CreateProduct(ctx context.Context, product *models.Product) error {
	query := s.rebind(`
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		product.CreatedBy,
		timeToUnix(product.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

// ListProducts returns a page of owner's products, newest first
func (s *Storage) ListProducts(ctx context.Context, ownerID string, filter models.ProductFilter) ([]*models.Product, int64, error) {
	where := `WHERE created_by = ?`
	args := []any{ownerID}

	if search := strings.TrimSpace(filter.Search); search != "" {
		where += ` AND LOWER(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}

	var total int64
	countQuery := s.rebind(`SELECT COUNT(*) FROM products ` + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := s.rebind(`
		SELECT ` + productColumns + `
		FROM products
		` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)
	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return products, total, nil
}

// GetProduct returns owner's product by ID
func (s *Storage) GetProduct(ctx context.Context, ownerID, productID string) (*models.Product, error) {
	query := s.rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND created_by = ?`)

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, productID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProductNotFound
		}
		return nil, err
	}

	return p, nil
}

// UpdateProduct overwrites mutable fields of owner's product
func (s *Storage) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := s.rebind(`
		UPDATE products
		SET name = ?, description = ?, price = ?, quantity = ?
		WHERE id = ? AND created_by = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		product.ID,
		product.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return checkAffected(result, storage.ErrProductNotFound)
}

// DeleteProduct deletes owner's product
func (s *Storage) DeleteProduct(ctx context.Context, ownerID, productID string) error {
	query := s.rebind(`DELETE FROM products WHERE id = ? AND created_by = ?`)

	result, err := s.db.ExecContext(ctx, query, productID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return checkAffected(result, storage.ErrProductNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	p := &models.Product{}
	var createdAt int64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Quantity,
		&p.CreatedBy,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.CreatedAt = unixToTime(createdAt)
	return p, nil
}

func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
