package service

import (
	"context"

	"qpinta/internal/repository"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// AdminCatalog backs the admin product page: the product list, the
// categories for the picker and the editor modal.
type AdminCatalog struct {
	Products   *ProductList
	Categories *CategoryList
	Editor     *ItemEditor
}

func NewAdminCatalog(products repository.ProductRepository, categories repository.CategoryRepository, images ImageStore, logger *zap.Logger) *AdminCatalog {
	productList := NewProductList(products, images, logger)
	return &AdminCatalog{
		Products:   productList,
		Categories: NewCategoryList(categories, products),
		Editor:     NewItemEditor(productList, images, logger),
	}
}

// Load fetches products and categories concurrently. Either failure fails
// the whole load.
func (c *AdminCatalog) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Products.Load(gctx, nil)
	})
	g.Go(func() error {
		return c.Categories.Load(gctx)
	})
	return g.Wait()
}

// CategoryName resolves a category id against the loaded categories.
func (c *AdminCatalog) CategoryName(id *int64) string {
	if id == nil {
		return ""
	}
	for _, category := range c.Categories.Items() {
		if category.ID == *id {
			return category.Name
		}
	}
	return ""
}
