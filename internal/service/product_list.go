package service

import (
	"context"

	"qpinta/internal/domain"
	"qpinta/internal/repository"

	"go.uber.org/zap"
)

// ImageStore holds product images in object storage.
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, name string) error
}

// ProductList is the view-model over the products table, used by both the
// storefront listing and the admin page.
type ProductList struct {
	products repository.ProductRepository
	images   ImageStore
	logger   *zap.Logger
	list     *localList[domain.Product]
}

func NewProductList(products repository.ProductRepository, images ImageStore, logger *zap.Logger) *ProductList {
	return &ProductList{
		products: products,
		images:   images,
		logger:   logger,
		list:     newLocalList(func(p *domain.Product) int64 { return p.ID }),
	}
}

// Load replaces the local list with the products of categoryID, or all
// products when it is nil, newest first.
func (l *ProductList) Load(ctx context.Context, categoryID *int64) error {
	generation := l.list.begin()

	products, err := l.products.List(ctx, categoryID)
	if err != nil {
		return err
	}
	if !l.list.replace(generation, products) {
		l.logger.Debug("Discarded stale product list")
	}
	return nil
}

// Items returns the local list.
func (l *ProductList) Items() []*domain.Product {
	return l.list.snapshot()
}

// Find returns a copy of the local product with the given id.
func (l *ProductList) Find(id int64) (*domain.Product, bool) {
	return l.list.find(id)
}

// Create inserts a product and prepends the echoed row. It returns nil
// without error when the server echoed nothing.
func (l *ProductList) Create(ctx context.Context, product domain.NewProduct) (*domain.Product, error) {
	created, err := l.products.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, nil
	}
	l.list.prepend(created)
	return created, nil
}

// Update patches a product and merges the patch into the local copy.
func (l *ProductList) Update(ctx context.Context, id int64, patch domain.ProductPatch) error {
	if err := l.products.Update(ctx, id, patch); err != nil {
		return err
	}
	l.list.merge(id, patch.Apply)
	return nil
}

// Delete removes the product's stored image, then its record. A failed image
// removal is logged and does not stop the record delete.
func (l *ProductList) Delete(ctx context.Context, id int64) error {
	product, ok := l.list.find(id)
	if !ok {
		return ErrProductNotFound
	}

	if product.Image != "" {
		if err := l.images.Remove(ctx, product.Image); err != nil {
			l.logger.Warn("Failed to remove product image",
				zap.Int64("product_id", id),
				zap.String("image", product.Image),
				zap.Error(err),
			)
		}
	}

	if err := l.products.Delete(ctx, id); err != nil {
		return err
	}
	l.list.remove(id)
	return nil
}
