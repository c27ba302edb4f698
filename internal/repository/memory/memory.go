// Package memory provides in-memory implementations of the repository
// interfaces. They mirror the postgres query semantics (filtering, ordering,
// owner-scoped lookups) and back the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/repository"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
)

// DB satisfies db.DB for services wired against the in-memory repositories.
// The repositories ignore the handle, so WithTx simply runs the function and
// the query methods are never reached.
type DB struct{}

var _ db.DB = DB{}

func (DB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (DB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (DB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (d DB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	return txFunc(d)
}

type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]model.User
	categories []model.Category
	products   map[uuid.UUID]model.Product
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]model.User),
		products: make(map[uuid.UUID]model.Product),
	}
}

// SeedCategories replaces the category set.
func (s *Store) SeedCategories(categories []model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]model.Category(nil), categories...)
}

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) WithDB(_ db.DB) repository.UserRepository { return r }

func (r *UserRepository) CreateUser(_ context.Context, user model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	r.store.users[user.ID] = user

	return nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type CategoryRepository struct {
	store *Store
}

func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func (r *CategoryRepository) WithDB(_ db.DB) repository.CategoryRepository { return r }

func (r *CategoryRepository) ListCategories(_ context.Context) ([]model.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	categories := append([]model.Category(nil), r.store.categories...)
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (r *CategoryRepository) GetCategory(_ context.Context, id uuid.UUID) (model.Category, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, category := range r.store.categories {
		if category.ID == id {
			return category, nil
		}
	}
	return model.Category{}, repository.ErrNotFound
}

type ProductRepository struct {
	store *Store
}

func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) WithDB(_ db.DB) repository.ProductRepository { return r }

func (r *ProductRepository) CreateProduct(_ context.Context, product model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product.CategoryName = r.categoryName(product.CategoryID)
	r.store.products[product.ID] = product

	return nil
}

func (r *ProductRepository) ListProducts(_ context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := r.filterProducts(params.Filter)

	// Same ordering as the postgres query: category name ascending with
	// uncategorized products last, then newest first.
	sort.Slice(matched, func(i, j int) bool {
		left, right := matched[i], matched[j]
		if (left.CategoryID == nil) != (right.CategoryID == nil) {
			return right.CategoryID == nil
		}
		if left.CategoryName != right.CategoryName {
			return left.CategoryName < right.CategoryName
		}
		return left.CreatedAt.After(right.CreatedAt)
	})

	start := int(params.Offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(params.Limit)
	if end > len(matched) {
		end = len(matched)
	}

	return append([]model.Product(nil), matched[start:end]...), nil
}

func (r *ProductRepository) CountProducts(_ context.Context, filter repository.ProductFilter) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return int64(len(r.filterProducts(filter))), nil
}

func (r *ProductRepository) FindOwnedProduct(_ context.Context, id, ownerID uuid.UUID) (model.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok || product.CreatedBy != ownerID {
		return model.Product{}, repository.ErrNotFound
	}
	return product, nil
}

func (r *ProductRepository) UpdateProduct(_ context.Context, product model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.products[product.ID]
	if !ok || existing.CreatedBy != product.CreatedBy {
		return repository.ErrNotFound
	}

	product.CategoryName = r.categoryName(product.CategoryID)
	r.store.products[product.ID] = product

	return nil
}

func (r *ProductRepository) DeleteProduct(_ context.Context, id, ownerID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok || product.CreatedBy != ownerID {
		return repository.ErrNotFound
	}
	delete(r.store.products, id)

	return nil
}

func (r *ProductRepository) filterProducts(filter repository.ProductFilter) []model.Product {
	matched := make([]model.Product, 0, len(r.store.products))
	query := strings.ToLower(filter.Query)

	for _, product := range r.store.products {
		if query != "" && !strings.Contains(strings.ToLower(product.Name), query) {
			continue
		}
		if filter.CategoryID != nil &&
			(product.CategoryID == nil || *product.CategoryID != *filter.CategoryID) {
			continue
		}
		matched = append(matched, product)
	}

	return matched
}

func (r *ProductRepository) categoryName(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	for _, category := range r.store.categories {
		if category.ID == *id {
			return category.Name
		}
	}
	return ""
}
