package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
)

// ProductFilter narrows listing and counting. Zero values mean "no filter".
type ProductFilter struct {
	// Query is matched as a case-insensitive substring of the product name.
	Query      string
	CategoryID *uuid.UUID
}

type ListProductsParams struct {
	Filter ProductFilter
	Limit  int32
	Offset int32
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	CreateProduct(ctx context.Context, product model.Product) error
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	CountProducts(ctx context.Context, filter ProductFilter) (int64, error)

	// FindOwnedProduct matches on both id and owner. A product owned by a
	// different user yields ErrNotFound, same as a missing one.
	FindOwnedProduct(ctx context.Context, id, ownerID uuid.UUID) (model.Product, error)
	UpdateProduct(ctx context.Context, product model.Product) error
	DeleteProduct(ctx context.Context, id, ownerID uuid.UUID) error
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) error {
	const query = `
		INSERT INTO products (id, name, description, sku, price, category_id, image_path, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	price, err := numericFromFloat(product.Price)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, query,
		product.ID, product.Name, product.Description, product.Sku, price,
		product.CategoryID, product.ImagePath, product.CreatedBy,
		product.CreatedAt, product.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.sku, p.price, p.category_id,
		       COALESCE(c.name, ''), p.image_path, p.created_by, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`

	where, args := buildProductFilter(params.Filter)
	query += where

	// Products without a category sort after named categories (NULLS LAST is
	// the postgres default for ASC), newest first within each category.
	query += fmt.Sprintf(`
		ORDER BY c.name ASC, p.created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, params.Limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r productRepository) CountProducts(ctx context.Context, filter ProductFilter) (int64, error) {
	query := `
		SELECT count(*)
		FROM products p`

	where, args := buildProductFilter(filter)
	query += where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}

	return count, nil
}

func (r productRepository) FindOwnedProduct(ctx context.Context, id, ownerID uuid.UUID) (model.Product, error) {
	const query = `
		SELECT p.id, p.name, p.description, p.sku, p.price, p.category_id,
		       COALESCE(c.name, ''), p.image_path, p.created_by, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.created_by = $2`

	rows, err := r.db.Query(ctx, query, id, ownerID)
	if err != nil {
		return model.Product{}, fmt.Errorf("find owned product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Product{}, fmt.Errorf("find owned product: %w", err)
		}
		return model.Product{}, ErrNotFound
	}

	return scanProduct(rows)
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) error {
	const query = `
		UPDATE products
		SET name = $1, description = $2, sku = $3, price = $4, category_id = $5,
		    image_path = $6, updated_at = $7
		WHERE id = $8 AND created_by = $9`

	price, err := numericFromFloat(product.Price)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query,
		product.Name, product.Description, product.Sku, price, product.CategoryID,
		product.ImagePath, product.UpdatedAt, product.ID, product.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id, ownerID uuid.UUID) error {
	const query = `
		DELETE FROM products
		WHERE id = $1 AND created_by = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func buildProductFilter(filter ProductFilter) (string, []any) {
	where := ""
	args := make([]any, 0, 2)

	addClause := func(clause string, arg any) {
		if where == "" {
			where = "\n\t\tWHERE "
		} else {
			where += " AND "
		}
		args = append(args, arg)
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.Query != "" {
		addClause(`p.name ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLikePattern(filter.Query))
	}
	if filter.CategoryID != nil {
		addClause("p.category_id = $%d", *filter.CategoryID)
	}

	return where, args
}

// escapeLikePattern escapes the LIKE metacharacters so a user query matches
// literally. The queries pair it with ESCAPE '\'.
func escapeLikePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanProduct(rows pgx.Rows) (model.Product, error) {
	var (
		product model.Product
		price   pgtype.Numeric
	)
	if err := rows.Scan(
		&product.ID, &product.Name, &product.Description, &product.Sku, &price,
		&product.CategoryID, &product.CategoryName, &product.ImagePath,
		&product.CreatedBy, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return model.Product{}, fmt.Errorf("scan product: %w", err)
	}

	priceValue, err := price.Float64Value()
	if err != nil {
		return model.Product{}, fmt.Errorf("convert price to float64: %w", err)
	}
	product.Price = priceValue.Float64

	return product, nil
}

func numericFromFloat(f float64) (pgtype.Numeric, error) {
	var price pgtype.Numeric
	if err := price.Scan(fmt.Sprintf("%.2f", f)); err != nil {
		return price, fmt.Errorf("scan price: %w", err)
	}
	return price, nil
}
