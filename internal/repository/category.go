package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
)

type CategoryRepository interface {
	WithDB(db db.DB) CategoryRepository
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (model.Category, error)
}

type categoryRepository struct {
	db db.DB
}

func NewCategoryRepository(db db.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r categoryRepository) WithDB(db db.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r categoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	const query = `
		SELECT id, name
		FROM categories
		ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

func (r categoryRepository) GetCategory(ctx context.Context, id uuid.UUID) (model.Category, error) {
	const query = `
		SELECT id, name
		FROM categories
		WHERE id = $1`

	var category model.Category
	if err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}
