package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/blackpearlke/blackpearl-api/internal/apperr"
	"github.com/blackpearlke/blackpearl-api/internal/database"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

type ProductStore struct {
	db *database.DB
}

func NewProductStore(db *database.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, name, slug, description, images, price, compare_at_price, currency,
	count_in_stock, sku, category, tags, is_active, is_featured, sold_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p         models.Product
		images    []byte
		tags      []byte
		compareAt sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &images, &p.Price, &compareAt,
		&p.Currency, &p.CountInStock, &p.SKU, &p.Category, &tags, &p.IsActive, &p.IsFeatured,
		&p.SoldCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if compareAt.Valid {
		p.CompareAtPrice = &compareAt.Float64
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode product tags: %w", err)
	}
	return &p, nil
}

// ByID returns the product or nil when it does not exist.
func (s *ProductStore) ByID(ctx context.Context, id int64) (*models.Product, error) {
	return productByID(ctx, s.db, id)
}

func productByID(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return p, nil
}

// List returns a page of products, newest first, optionally filtered by a
// case-insensitive name match.
func (s *ProductStore) List(ctx context.Context, page, limit int, search string) ([]*models.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name LIKE ?`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Create inserts a new product. A duplicate slug surfaces as a conflict.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode product tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, slug, description, images, price, compare_at_price,
			currency, count_in_stock, sku, category, tags, is_active, is_featured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.Description, images, p.Price, p.CompareAtPrice,
		p.Currency, p.CountInStock, p.SKU, p.Category, tags, p.IsActive, p.IsFeatured)
	if isDuplicate(err) {
		return apperr.Conflict("Product already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// Update overwrites the mutable fields of an existing product.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode product tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = ?, slug = ?, description = ?, images = ?, price = ?,
			compare_at_price = ?, currency = ?, count_in_stock = ?, sku = ?, category = ?,
			tags = ?, is_active = ?, is_featured = ?
		WHERE id = ?`,
		p.Name, p.Slug, p.Description, images, p.Price, p.CompareAtPrice, p.Currency,
		p.CountInStock, p.SKU, p.Category, tags, p.IsActive, p.IsFeatured, p.ID)
	if isDuplicate(err) {
		return apperr.Conflict("Product already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// decrementStock atomically decrements count_in_stock, but only when at
// least qty units remain. Returns false when the condition fails, which
// is how concurrent oversells are rejected.
func decrementStock(ctx context.Context, q Querier, productID int64, qty int) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET count_in_stock = count_in_stock - ?, sold_count = sold_count + ?
		WHERE id = ? AND count_in_stock >= ?`,
		qty, qty, productID, qty)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
