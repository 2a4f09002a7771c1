package service

import (
	"context"
	"errors"
	"fmt"

	"qpinta/internal/domain"
	"qpinta/internal/repository"
)

// DetailView loads a single product with its category name.
type DetailView struct {
	products repository.ProductRepository
}

func NewDetailView(products repository.ProductRepository) *DetailView {
	return &DetailView{products: products}
}

// Load returns ErrProductNotFound when no row matches.
func (v *DetailView) Load(ctx context.Context, id int64) (*domain.ProductDetail, error) {
	detail, err := v.products.FindDetail(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return detail, nil
}
