package transport

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"qpinta/internal/domain"
	"qpinta/internal/middleware"
	"qpinta/internal/repository"
	"qpinta/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxImageBytes = 10 << 20
	// maxFormBytes leaves room for the other fields and multipart framing.
	maxFormBytes = maxImageBytes + 1<<20
)

// AdminHandler serves the gated category and product administration pages.
// Every request mounts fresh view-models and renders the local list they end
// up with.
type AdminHandler struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	images     service.ImageStore
	renderer   *Renderer
	logger     *zap.Logger
}

func NewAdminHandler(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	images service.ImageStore,
	renderer *Renderer,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		products:   products,
		categories: categories,
		images:     images,
		renderer:   renderer,
		logger:     logger,
	}
}

// RegisterRoutes registers the admin routes; r must already be gated.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/categories", func(r chi.Router) {
		r.Get("/", h.Categories)
		r.Post("/", h.CreateCategory)
		r.Post("/{id}/rename", h.RenameCategory)
		r.Post("/{id}/delete", h.DeleteCategory)
	})
	r.Route("/admin/products", func(r chi.Router) {
		r.Get("/", h.Products)
		r.Post("/", h.CreateProduct)
		r.Post("/{id}", h.UpdateProduct)
		r.Post("/{id}/delete", h.DeleteProduct)
	})
}

type categoriesPage struct {
	Categories []*domain.Category
	Error      string
	Alert      string
}

func (h *AdminHandler) renderCategories(w http.ResponseWriter, r *http.Request, list *service.CategoryList, err error) {
	page := categoriesPage{Categories: list.Items()}
	status := http.StatusOK
	if err != nil {
		page.Alert = userMessage(err)
		status = statusFor(err)
	}
	h.renderer.Render(w, r, status, "categories.gohtml", page)
}

// mountCategories loads the category list, rendering the inline error and
// returning nil when that fails.
func (h *AdminHandler) mountCategories(w http.ResponseWriter, r *http.Request) *service.CategoryList {
	list := service.NewCategoryList(h.categories, h.products)
	if err := list.Load(r.Context()); err != nil {
		h.logger.Warn("Failed to load categories", zap.Error(err))
		h.renderer.Render(w, r, http.StatusOK, "categories.gohtml", categoriesPage{Error: GenericErrorMessage})
		return nil
	}
	return list
}

// Categories lists all categories
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if list := h.mountCategories(w, r); list != nil {
		h.renderCategories(w, r, list, nil)
	}
}

// CreateCategory adds a category and shows it at the top of the list
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	list := h.mountCategories(w, r)
	if list == nil {
		return
	}

	_, err := list.Create(r.Context(), service.CategoryDraft{Name: r.PostFormValue("name")})
	if err != nil {
		h.logger.Warn("Failed to create category", zap.Error(err))
	}
	h.renderCategories(w, r, list, err)
}

// RenameCategory renames a category in place
func (h *AdminHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list := h.mountCategories(w, r)
	if list == nil {
		return
	}

	err := list.Rename(r.Context(), id, service.CategoryDraft{Name: r.PostFormValue("name")})
	if err != nil {
		h.logger.Warn("Failed to rename category", zap.Int64("category_id", id), zap.Error(err))
	}
	h.renderCategories(w, r, list, err)
}

// DeleteCategory deletes a category that no product uses
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list := h.mountCategories(w, r)
	if list == nil {
		return
	}

	err := list.Delete(r.Context(), id)
	if err != nil {
		h.logger.Info("Category delete refused or failed", zap.Int64("category_id", id), zap.Error(err))
	}
	h.renderCategories(w, r, list, err)
}

type productRow struct {
	*domain.Product
	CategoryName string
}

type productsPage struct {
	Products   []productRow
	Categories []*domain.Category
	Editor     editorView
	Error      string
	Alert      string
}

// CategoryLabel names the category picked in the editor.
func (p productsPage) CategoryLabel(id *int64) string {
	if id == nil {
		return "No category"
	}
	for _, c := range p.Categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return "No category"
}

type editorView struct {
	Open       bool
	Editing    bool
	ID         int64
	Draft      service.Draft
	PickerOpen bool
}

func (h *AdminHandler) renderProducts(w http.ResponseWriter, r *http.Request, catalog *service.AdminCatalog, err error) {
	editor := catalog.Editor
	id, editing := editor.Editing()
	page := productsPage{
		Categories: catalog.Categories.Items(),
		Editor: editorView{
			Open:       editor.State() != service.EditorClosed,
			Editing:    editing,
			ID:         id,
			Draft:      editor.Draft(),
			PickerOpen: editor.PickerOpen(),
		},
	}
	for _, p := range catalog.Products.Items() {
		page.Products = append(page.Products, productRow{Product: p, CategoryName: catalog.CategoryName(p.CategoryID)})
	}

	status := http.StatusOK
	if err != nil {
		page.Alert = userMessage(err)
		status = statusFor(err)
	}
	h.renderer.Render(w, r, status, "products.gohtml", page)
}

// mountCatalog loads products and categories together, rendering the inline
// error and returning nil when either fails.
func (h *AdminHandler) mountCatalog(w http.ResponseWriter, r *http.Request) *service.AdminCatalog {
	catalog := service.NewAdminCatalog(h.products, h.categories, h.images, h.logger)
	if err := catalog.Load(r.Context()); err != nil {
		h.logger.Warn("Failed to load product administration", zap.Error(err))
		h.renderer.Render(w, r, http.StatusOK, "products.gohtml", productsPage{Error: GenericErrorMessage})
		return nil
	}
	return catalog
}

// Products lists products. ?new opens the create modal, ?edit=<id> the edit
// modal and ?picker=open its category picker. price, size and categoryId
// carry the draft across picker navigation.
func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	catalog := h.mountCatalog(w, r)
	if catalog == nil {
		return
	}

	query := r.URL.Query()
	editor := catalog.Editor
	if editID := parseOptionalID(query.Get("edit")); editID != nil {
		if product, ok := catalog.Products.Find(*editID); ok {
			editor.OpenEdit(*product)
		}
	} else if query.Has("new") {
		editor.OpenCreate()
	}
	if editor.State() == service.EditorOpen {
		if price, err := strconv.ParseFloat(query.Get("price"), 64); err == nil {
			editor.SetPrice(price)
		}
		if query.Has("size") {
			editor.SetSize(query.Get("size"))
		}
		if categoryID := parseOptionalID(query.Get("categoryId")); categoryID != nil {
			editor.PickCategory(*categoryID)
		}
		if query.Get("picker") == "open" {
			editor.OpenPicker()
		}
	}

	h.renderProducts(w, r, catalog, nil)
}

// CreateProduct uploads the staged image and creates the product
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	catalog := h.mountCatalog(w, r)
	if catalog == nil {
		return
	}

	editor := catalog.Editor
	editor.OpenCreate()
	if err := h.fillDraft(r, editor, true); err != nil {
		h.renderProducts(w, r, catalog, err)
		return
	}

	created, err := editor.Submit(r.Context())
	if err != nil {
		h.logger.Warn("Failed to create product", zap.Error(err))
	} else if created != nil {
		h.logger.Info("Product created", zap.Int64("product_id", created.ID), zap.String("image", created.Image))
	}
	h.renderProducts(w, r, catalog, err)
}

// UpdateProduct saves the edit modal
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	catalog := h.mountCatalog(w, r)
	if catalog == nil {
		return
	}

	product, found := catalog.Products.Find(id)
	if !found {
		h.renderProducts(w, r, catalog, service.ErrProductNotFound)
		return
	}

	editor := catalog.Editor
	editor.OpenEdit(*product)
	if err := h.fillDraft(r, editor, false); err != nil {
		h.renderProducts(w, r, catalog, err)
		return
	}

	_, err := editor.Submit(r.Context())
	if err != nil {
		h.logger.Warn("Failed to update product", zap.Int64("product_id", id), zap.Error(err))
	}
	h.renderProducts(w, r, catalog, err)
}

// DeleteProduct removes a product and its image
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	catalog := h.mountCatalog(w, r)
	if catalog == nil {
		return
	}

	err := catalog.Products.Delete(r.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to delete product", zap.Int64("product_id", id), zap.Error(err))
	}
	h.renderProducts(w, r, catalog, err)
}

// fillDraft copies the posted form into the open editor. Unparseable
// numbers are left unset so validation rejects them.
func (h *AdminHandler) fillDraft(r *http.Request, editor *service.ItemEditor, withImage bool) error {
	if err := middleware.ParseForm(r, maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.ErrImageTooLarge
		}
		return err
	}

	if raw := strings.TrimSpace(r.PostFormValue("price")); raw != "" {
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			editor.SetPrice(price)
		}
	}
	if size := r.PostFormValue("size"); size != "" || withImage {
		editor.SetSize(size)
	}
	if categoryID := parseOptionalID(r.PostFormValue("categoryId")); categoryID != nil {
		editor.PickCategory(*categoryID)
	}

	if !withImage {
		return nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxImageBytes {
		return service.ErrImageTooLarge
	}
	editor.StageImage(service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	return nil
}

func (h *AdminHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}
