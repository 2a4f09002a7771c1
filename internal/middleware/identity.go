package middleware

import (
	"context"
	"net/http"

	"qpinta/internal/session"

	"go.uber.org/zap"
)

type contextKey string

const (
	ClientIDKey contextKey = "client_id"
	GateKey     contextKey = "session_gate"
)

// ClientIdentity resolves the browser's signed client cookie, issuing a fresh
// identity when it is missing or does not verify, and attaches the client's
// session gate to the request context.
func ClientIdentity(ids *session.ClientIDs, provider session.Provider, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var clientID string

			if cookie, err := r.Cookie(session.CookieName); err == nil {
				id, err := ids.Parse(cookie.Value)
				if err != nil {
					logger.Debug("Client cookie rejected", zap.Error(err))
				}
				clientID = id
			}

			if clientID == "" {
				id, signed, err := ids.Issue()
				if err != nil {
					logger.Error("Failed to issue client identity", zap.Error(err))
					RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
					return
				}
				http.SetCookie(w, ids.Cookie(signed))
				clientID = id
				logger.Debug("Issued client identity", zap.String("client_id", clientID))
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			ctx = context.WithValue(ctx, GateKey, session.NewGate(provider.Storage(clientID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID extracts the client id from request context
func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(string)
	return clientID, ok
}

// GetGate extracts the client's session gate from request context
func GetGate(ctx context.Context) (*session.Gate, bool) {
	gate, ok := ctx.Value(GateKey).(*session.Gate)
	return gate, ok
}
