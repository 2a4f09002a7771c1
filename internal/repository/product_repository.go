package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"qpinta/internal/backend"
	"qpinta/internal/domain"
)

const productsTable = "products"

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	List(ctx context.Context, categoryID *int64) ([]*domain.Product, error)
	FindDetail(ctx context.Context, id int64) (*domain.ProductDetail, error)
	Create(ctx context.Context, product domain.NewProduct) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) error
	Delete(ctx context.Context, id int64) error
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
}

type productRepository struct {
	rows Rows
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(rows Rows) ProductRepository {
	return &productRepository{rows: rows}
}

// List retrieves all products, optionally only those of one category
func (r *productRepository) List(ctx context.Context, categoryID *int64) ([]*domain.Product, error) {
	query := url.Values{"select": {"*"}}
	if categoryID != nil {
		query.Set("categoryId", backend.Eq(strconv.FormatInt(*categoryID, 10)))
	}

	products := []*domain.Product{}
	if err := r.rows.Select(ctx, productsTable, query, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindDetail retrieves one product joined with its category name
func (r *productRepository) FindDetail(ctx context.Context, id int64) (*domain.ProductDetail, error) {
	query := byID(id)
	query.Set("select", "*,categories(name)")

	var details []*domain.ProductDetail
	if err := r.rows.Select(ctx, productsTable, query, &details); err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	if len(details) == 0 {
		return nil, ErrProductNotFound
	}
	return details[0], nil
}

// Create inserts a product and returns the echoed row, or nil if the echo
// was empty.
func (r *productRepository) Create(ctx context.Context, product domain.NewProduct) (*domain.Product, error) {
	var created []*domain.Product
	if err := r.rows.Insert(ctx, productsTable, product, &created); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if len(created) == 0 {
		return nil, nil
	}
	return created[0], nil
}

// Update applies a partial update to a product
func (r *productRepository) Update(ctx context.Context, id int64, patch domain.ProductPatch) error {
	if err := r.rows.Update(ctx, productsTable, byID(id), patch); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// Delete removes a product record
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	if err := r.rows.Delete(ctx, productsTable, byID(id)); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// CountByCategory counts the products that reference a category
func (r *productRepository) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	// Same filter column as List.
	query := url.Values{
		"categoryId": {backend.Eq(strconv.FormatInt(categoryID, 10))},
		"select":     {"id"},
	}

	var ids []struct {
		ID int64 `json:"id"`
	}
	if err := r.rows.Select(ctx, productsTable, query, &ids); err != nil {
		return 0, fmt.Errorf("failed to count products of category: %w", err)
	}
	return len(ids), nil
}
