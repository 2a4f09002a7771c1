package service

import (
	"context"

	"qpinta/internal/domain"
	"qpinta/internal/repository"
)

// CategoryMenu is the slide-out category filter of the storefront listing.
type CategoryMenu struct {
	categories repository.CategoryRepository

	Open     bool
	Selected *int64
	Items    []*domain.Category
}

func NewCategoryMenu(categories repository.CategoryRepository, open bool, selected *int64) *CategoryMenu {
	return &CategoryMenu{categories: categories, Open: open, Selected: selected}
}

// Load fetches every category in server order.
func (m *CategoryMenu) Load(ctx context.Context) error {
	items, err := m.categories.List(ctx)
	if err != nil {
		return err
	}
	m.Items = items
	return nil
}

// IsSelected reports whether id is the active filter.
func (m *CategoryMenu) IsSelected(id int64) bool {
	return m.Selected != nil && *m.Selected == id
}
