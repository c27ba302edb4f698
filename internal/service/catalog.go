package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ngocanhtran/product-catalog/internal/apperr"
	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/repository"
	"github.com/ngocanhtran/product-catalog/internal/session"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
	"github.com/ngocanhtran/product-catalog/pkg/validator"
)

// ListPageSize is the fixed number of products per listing page.
const ListPageSize = 10

type ListProductsParams struct {
	// Query filters by case-insensitive substring of the product name.
	Query      string
	CategoryID *uuid.UUID
	// Page is 1-based. Values outside the valid range are clamped, never
	// rejected.
	Page int
}

// ProductListing is the full listing view: one page of products plus the
// totals and the category set the filter UI needs.
type ProductListing struct {
	Products      []model.Product  `json:"products"`
	Categories    []model.Category `json:"categories"`
	TotalProducts int64            `json:"total_products"`
	Page          int              `json:"page"`
	PageCount     int              `json:"page_count"`
}

// ProductFormParams carries the validated product form fields.
type ProductFormParams struct {
	Name        string     `validate:"required,max=200"`
	Description string     `validate:"max=2000"`
	Sku         string     `validate:"max=64"`
	Price       float64    `validate:"gte=0"`
	CategoryID  *uuid.UUID `validate:"-"`
	// ImagePath is set by the upload handling; empty means "no new image".
	ImagePath string `validate:"-"`
}

type CatalogService interface {
	// ListProducts applies the search and category filters, orders by
	// (category name asc, created_at desc) and returns the requested page.
	// Listing is not owner-scoped: every user sees every product.
	ListProducts(ctx context.Context, params ListProductsParams) (ProductListing, error)

	// ListCategories backs the product form's category choices.
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateProduct(ctx context.Context, owner session.CurrentUser, params ProductFormParams) (model.Product, error)
	GetOwnedProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID) (model.Product, error)
	UpdateProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID, params ProductFormParams) (model.Product, error)
	DeleteProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID) error
}

type catalogService struct {
	db           db.DB
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	validator    validator.Validator
}

func NewCatalogService(
	db db.DB,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	validator validator.Validator,
) CatalogService {
	return &catalogService{
		db:           db,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		validator:    validator,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, params ListProductsParams) (ProductListing, error) {
	filter := repository.ProductFilter{
		Query:      params.Query,
		CategoryID: params.CategoryID,
	}

	total, err := s.productRepo.CountProducts(ctx, filter)
	if err != nil {
		return ProductListing{}, fmt.Errorf("product repository count products: %w", err)
	}

	pageCount := int((total + ListPageSize - 1) / ListPageSize)
	if pageCount < 1 {
		pageCount = 1
	}

	// Clamp instead of erroring, like a paginator's get_page.
	page := params.Page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	products, err := s.productRepo.ListProducts(ctx, repository.ListProductsParams{
		Filter: filter,
		Limit:  ListPageSize,
		Offset: int32((page - 1) * ListPageSize),
	})
	if err != nil {
		return ProductListing{}, fmt.Errorf("product repository list products: %w", err)
	}

	// The category set is independent of the active filters.
	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return ProductListing{}, fmt.Errorf("category repository list categories: %w", err)
	}

	return ProductListing{
		Products:      products,
		Categories:    categories,
		TotalProducts: total,
		Page:          page,
		PageCount:     pageCount,
	}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("category repository list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, owner session.CurrentUser, params ProductFormParams) (model.Product, error) {
	if err := s.validateForm(ctx, params); err != nil {
		return model.Product{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	product := model.Product{
		ID:          id,
		Name:        params.Name,
		Description: params.Description,
		Sku:         params.Sku,
		Price:       params.Price,
		CategoryID:  params.CategoryID,
		ImagePath:   params.ImagePath,
		CreatedBy:   owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.CreateProduct(ctx, product); err != nil {
		return model.Product{}, fmt.Errorf("product repository create product: %w", err)
	}

	return product, nil
}

func (s *catalogService) GetOwnedProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID) (model.Product, error) {
	product, err := s.productRepo.FindOwnedProduct(ctx, id, owner.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Product{}, apperr.ProductNotFoundErr
		}
		return model.Product{}, fmt.Errorf("product repository find owned product: %w", err)
	}

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID, params ProductFormParams) (model.Product, error) {
	var product model.Product
	if err := s.db.WithTx(ctx, func(tx db.DB) error {
		repo := s.productRepo.WithDB(tx)

		// Ownership is checked before the form: a non-owner gets the same
		// not-found outcome whether or not their input was valid.
		var err error
		product, err = repo.FindOwnedProduct(ctx, id, owner.ID)
		if err != nil {
			return fmt.Errorf("product repository find owned product: %w", err)
		}

		if err := s.validateForm(ctx, params); err != nil {
			return err
		}

		product.Name = params.Name
		product.Description = params.Description
		product.Sku = params.Sku
		product.Price = params.Price
		product.CategoryID = params.CategoryID
		product.UpdatedAt = time.Now().UTC()
		if params.ImagePath != "" {
			product.ImagePath = params.ImagePath
		}

		if err := repo.UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		return nil
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Product{}, apperr.ProductNotFoundErr
		}
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, owner session.CurrentUser, id uuid.UUID) error {
	if err := s.productRepo.DeleteProduct(ctx, id, owner.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ProductNotFoundErr
		}
		return fmt.Errorf("product repository delete product: %w", err)
	}

	return nil
}

func (s *catalogService) validateForm(ctx context.Context, params ProductFormParams) error {
	if err := s.validator.Validate(params); err != nil {
		return err
	}

	if params.CategoryID != nil {
		if _, err := s.categoryRepo.GetCategory(ctx, *params.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.CategoryNotFoundErr
			}
			return fmt.Errorf("category repository get category: %w", err)
		}
	}

	return nil
}
