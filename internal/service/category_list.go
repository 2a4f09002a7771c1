package service

import (
	"context"
	"fmt"
	"strings"

	"qpinta/internal/domain"
	"qpinta/internal/repository"

	"github.com/go-playground/validator/v10"
)

// CategoryDraft is the form behind category create and rename.
type CategoryDraft struct {
	Name string `validate:"required"`
}

// CategoryList is the admin view-model over the categories table.
type CategoryList struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	validate   *validator.Validate
	list       *localList[domain.Category]
}

// NewCategoryList creates a category view-model. The product repository is
// used for the dependency check before a delete.
func NewCategoryList(categories repository.CategoryRepository, products repository.ProductRepository) *CategoryList {
	return &CategoryList{
		categories: categories,
		products:   products,
		validate:   validator.New(),
		list:       newLocalList(func(c *domain.Category) int64 { return c.ID }),
	}
}

// Load replaces the local list with every category, newest first.
func (l *CategoryList) Load(ctx context.Context) error {
	generation := l.list.begin()

	categories, err := l.categories.List(ctx)
	if err != nil {
		return err
	}
	l.list.replace(generation, categories)
	return nil
}

// Items returns the local list.
func (l *CategoryList) Items() []*domain.Category {
	return l.list.snapshot()
}

// Create inserts a category and prepends the echoed row. It returns nil
// without error when the server echoed nothing.
func (l *CategoryList) Create(ctx context.Context, draft CategoryDraft) (*domain.Category, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if err := l.validate.Struct(draft); err != nil {
		return nil, err
	}

	created, err := l.categories.Create(ctx, draft.Name)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, nil
	}
	l.list.prepend(created)
	return created, nil
}

// Rename updates a category and merges the new name into the local copy.
func (l *CategoryList) Rename(ctx context.Context, id int64, draft CategoryDraft) error {
	draft.Name = strings.TrimSpace(draft.Name)
	if err := l.validate.Struct(draft); err != nil {
		return err
	}

	if err := l.categories.Rename(ctx, id, draft.Name); err != nil {
		return err
	}
	l.list.merge(id, func(c domain.Category) domain.Category {
		c.Name = draft.Name
		return c
	})
	return nil
}

// Delete removes a category unless products still reference it, in which
// case it returns a *DependentItemsError and sends no delete. The check and
// the delete are separate requests.
func (l *CategoryList) Delete(ctx context.Context, id int64) error {
	count, err := l.products.CountByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check category usage: %w", err)
	}
	if count > 0 {
		return &DependentItemsError{CategoryID: id, Count: count}
	}

	if err := l.categories.Delete(ctx, id); err != nil {
		return err
	}
	l.list.remove(id)
	return nil
}
