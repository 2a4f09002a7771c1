package repository

import (
	"context"
	"fmt"
	"net/url"

	"qpinta/internal/domain"
)

const categoriesTable = "categories"

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.Category, error)
	Create(ctx context.Context, name string) (*domain.Category, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type categoryRepository struct {
	rows Rows
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(rows Rows) CategoryRepository {
	return &categoryRepository{rows: rows}
}

// List retrieves all categories in server order
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	categories := []*domain.Category{}
	if err := r.rows.Select(ctx, categoriesTable, url.Values{"select": {"*"}}, &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create inserts a category and returns the row the server echoed back, or
// nil if the echo was empty.
func (r *categoryRepository) Create(ctx context.Context, name string) (*domain.Category, error) {
	var created []*domain.Category
	if err := r.rows.Insert(ctx, categoriesTable, map[string]string{"name": name}, &created); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	if len(created) == 0 {
		return nil, nil
	}
	return created[0], nil
}

// Rename changes a category's name
func (r *categoryRepository) Rename(ctx context.Context, id int64, name string) error {
	if err := r.rows.Update(ctx, categoriesTable, byID(id), map[string]string{"name": name}); err != nil {
		return fmt.Errorf("failed to rename category: %w", err)
	}
	return nil
}

// Delete removes a category. It does not look at dependent products.
func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	if err := r.rows.Delete(ctx, categoriesTable, byID(id)); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
