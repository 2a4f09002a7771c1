package transport

import (
	"context"
	"net/http"
	"strings"

	"qpinta/internal/domain"
	"qpinta/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Authenticator signs an admin in against the hosted auth service.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error)
}

// LoginForm represents the login form payload
type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// AuthHandler handles admin sign-in, sign-out and the dashboard.
type AuthHandler struct {
	auth     Authenticator
	renderer *Renderer
	logger   *zap.Logger
}

func NewAuthHandler(auth Authenticator, renderer *Renderer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, renderer: renderer, logger: logger}
}

// RegisterRoutes registers the public admin routes. loginLimit guards the
// login post and may be nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	r.Get("/admin", h.AdminLink)
	r.Get("/admin/login", h.LoginPage)
	if loginLimit != nil {
		r.With(loginLimit).Post("/admin/login", h.Login)
	} else {
		r.Post("/admin/login", h.Login)
	}
	r.Post("/admin/logout", h.Logout)
}

// RegisterGatedRoutes registers routes that sit behind RequireAdmin.
func (h *AuthHandler) RegisterGatedRoutes(r chi.Router) {
	r.Get("/admin/dashboard", h.Dashboard)
}

// AdminLink sends authenticated admins to the dashboard and everyone else
// to the login page.
func (h *AuthHandler) AdminLink(w http.ResponseWriter, r *http.Request) {
	if gate, ok := middleware.GetGate(r.Context()); ok && gate.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

type loginPage struct {
	Email string
	Error string
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "login.gohtml", loginPage{})
}

// Login handles admin authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Render(w, r, http.StatusBadRequest, "login.gohtml", loginPage{Error: GenericErrorMessage})
		return
	}
	form := LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	page := loginPage{Email: form.Email, Error: GenericErrorMessage}

	if err := middleware.ValidateRequest(form); err != nil {
		h.logger.Debug("Login validation failed", zap.Any("errors", middleware.FormatValidationErrors(err)))
		h.renderer.Render(w, r, http.StatusBadRequest, "login.gohtml", page)
		return
	}

	gate, ok := middleware.GetGate(r.Context())
	if !ok {
		h.logger.Error("Session gate not found in context")
		h.renderer.Render(w, r, http.StatusInternalServerError, "login.gohtml", page)
		return
	}

	result, err := h.auth.SignInWithPassword(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		h.renderer.Render(w, r, http.StatusUnauthorized, "login.gohtml", page)
		return
	}

	if err := gate.Login(r.Context(), result.AccessToken, result.RefreshToken, result.User); err != nil {
		h.logger.Error("Failed to persist admin session", zap.Error(err))
		h.renderer.Render(w, r, http.StatusInternalServerError, "login.gohtml", page)
		return
	}

	h.logger.Info("Admin logged in", zap.String("user_id", result.User.ID))
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// Logout clears the client's admin session and returns to the catalog. The
// token is not revoked upstream.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if gate, ok := middleware.GetGate(r.Context()); ok {
		if err := gate.Logout(r.Context()); err != nil {
			h.logger.Error("Logout failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type dashboardPage struct {
	Email string
	Error string
}

// Dashboard greets the signed-in admin
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var page dashboardPage

	gate, _ := middleware.GetGate(r.Context())
	user, err := gate.CurrentUser(r.Context())
	switch {
	case err != nil:
		h.logger.Warn("Stored admin user unreadable", zap.Error(err))
		page.Error = GenericErrorMessage
	case user != nil:
		page.Email = user.Email
	}

	h.renderer.Render(w, r, http.StatusOK, "dashboard.gohtml", page)
}
