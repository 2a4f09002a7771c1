package middleware

import (
	"net/http"

	"qpinta/internal/backend"

	"go.uber.org/zap"
)

// RequireAdmin redirects to loginPath unless the client holds an admin
// token. It runs before any handler, so an unauthenticated request never
// reaches the backend. The token is checked for presence only; the backend
// is the one to reject it.
func RequireAdmin(loginPath string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate, ok := GetGate(r.Context())
			if !ok {
				logger.Warn("Session gate not found in context")
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			token := gate.AccessToken(r.Context())
			if token == "" {
				logger.Debug("Unauthenticated admin request redirected",
					zap.String("path", r.URL.Path),
				)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			ctx := backend.WithAccessToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
