package transport

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"qpinta/internal/backend"
	"qpinta/internal/middleware"
	"qpinta/internal/repository"
	"qpinta/internal/service"

	"go.uber.org/zap"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	// GenericErrorMessage is the one sentence every failed request collapses to.
	GenericErrorMessage = "Something went wrong. Please try again."
	NotFoundMessage     = "This product could not be loaded."
)

// StaticFS serves the embedded stylesheet.
func StaticFS() http.FileSystem {
	return http.FS(staticFS)
}

// Renderer executes the page templates.
type Renderer struct {
	templates    *template.Template
	imageBaseURL string
	logger       *zap.Logger
}

// NewRenderer parses every page up front; imageBaseURL is prefixed to
// stored image keys.
func NewRenderer(imageBaseURL string, logger *zap.Logger) (*Renderer, error) {
	r := &Renderer{imageBaseURL: imageBaseURL, logger: logger}

	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"imageURL": r.imageURL,
		"price":    formatPrice,
		"deref":    deref,
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}
	r.templates = tmpl
	return r, nil
}

func (r *Renderer) imageURL(key string) string {
	if key == "" {
		return ""
	}
	return r.imageBaseURL + url.PathEscape(key)
}

func formatPrice(price float64) string {
	return "$" + strconv.FormatFloat(price, 'f', 2, 64)
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// Render executes page into a buffer so a failing template never leaves a
// half-written response.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, page, data); err != nil {
		r.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		middleware.RespondWithError(w, req, http.StatusInternalServerError, GenericErrorMessage)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// userMessage is what a failed operation shows the user. Only a blocked
// category delete says more than the generic sentence.
func userMessage(err error) string {
	var dependentErr *service.DependentItemsError
	if errors.As(err, &dependentErr) {
		return dependentErr.Error()
	}
	return GenericErrorMessage
}

// statusFor maps an operation error to the status of the page that reports
// it.
func statusFor(err error) int {
	var dependentErr *service.DependentItemsError
	var backendErr *backend.Error

	switch {
	case errors.As(err, &dependentErr):
		return http.StatusConflict
	case errors.Is(err, service.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrImageRequired), middleware.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, repository.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrMalformedResponse), errors.As(err, &backendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
