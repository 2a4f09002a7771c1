package transport

import (
	"net/http"
	"strconv"

	"qpinta/internal/domain"
	"qpinta/internal/repository"
	"qpinta/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StorefrontHandler serves the public catalog pages. Its backend calls always
// carry the anonymous key.
type StorefrontHandler struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	images     service.ImageStore
	renderer   *Renderer
	logger     *zap.Logger
}

func NewStorefrontHandler(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	images service.ImageStore,
	renderer *Renderer,
	logger *zap.Logger,
) *StorefrontHandler {
	return &StorefrontHandler{
		products:   products,
		categories: categories,
		images:     images,
		renderer:   renderer,
		logger:     logger,
	}
}

// RegisterRoutes registers the storefront routes
func (h *StorefrontHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/product/{id}", h.Detail)
}

type indexPage struct {
	Products  []*domain.Product
	Error     string
	Menu      *service.CategoryMenu
	MenuError string
}

// Index renders the catalog, optionally filtered by ?category=<id>, with
// the category menu.
func (h *StorefrontHandler) Index(w http.ResponseWriter, r *http.Request) {
	categoryID := parseOptionalID(r.URL.Query().Get("category"))
	page := indexPage{
		Menu: service.NewCategoryMenu(h.categories, r.URL.Query().Get("menu") == "open", categoryID),
	}

	list := service.NewProductList(h.products, h.images, h.logger)
	if err := list.Load(r.Context(), categoryID); err != nil {
		h.logger.Warn("Failed to load catalog", zap.Error(err))
		page.Error = GenericErrorMessage
	}
	page.Products = list.Items()

	if err := page.Menu.Load(r.Context()); err != nil {
		h.logger.Warn("Failed to load category menu", zap.Error(err))
		page.MenuError = GenericErrorMessage
	}

	h.renderer.Render(w, r, http.StatusOK, "index.gohtml", page)
}

type detailPage struct {
	Product *domain.ProductDetail
	Error   string
}

// Detail renders one product. A missing product and a failed load look the
// same.
func (h *StorefrontHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.renderer.Render(w, r, http.StatusNotFound, "product.gohtml", detailPage{Error: NotFoundMessage})
		return
	}

	detail, err := service.NewDetailView(h.products).Load(r.Context(), id)
	if err != nil {
		h.logger.Debug("Product detail unavailable", zap.Int64("product_id", id), zap.Error(err))
		h.renderer.Render(w, r, http.StatusNotFound, "product.gohtml", detailPage{Error: NotFoundMessage})
		return
	}

	h.renderer.Render(w, r, http.StatusOK, "product.gohtml", detailPage{Product: detail})
}

func parseOptionalID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
