package session

import (
	"context"
	"encoding/json"
	"fmt"

	"qpinta/internal/domain"
)

// Gate is the admin session of one client, kept in its Storage.
type Gate struct {
	store Storage
}

func NewGate(store Storage) *Gate {
	return &Gate{store: store}
}

// IsAuthenticated reports whether a non-empty access token is stored.
func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	return g.AccessToken(ctx) != ""
}

// AccessToken returns the stored access token. An unreadable token counts as
// absent.
func (g *Gate) AccessToken(ctx context.Context) string {
	token, _, err := g.store.GetItem(ctx, KeyToken)
	if err != nil {
		return ""
	}
	return token
}

// Login persists the session, overwriting whatever was stored before.
func (g *Gate) Login(ctx context.Context, accessToken, refreshToken string, user domain.AdminUser) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode admin user: %w", err)
	}

	items := []struct{ key, value string }{
		{KeyToken, accessToken},
		{KeyRefreshToken, refreshToken},
		{KeyUser, string(blob)},
	}
	for _, item := range items {
		if err := g.store.SetItem(ctx, item.key, item.value); err != nil {
			return err
		}
	}
	return nil
}

// Logout clears the stored session. The token is not revoked upstream.
func (g *Gate) Logout(ctx context.Context) error {
	for _, key := range []string{KeyToken, KeyRefreshToken, KeyUser} {
		if err := g.store.RemoveItem(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// CurrentUser returns the stored user, nil if absent. A stored blob that is
// not valid JSON is an error.
func (g *Gate) CurrentUser(ctx context.Context) (*domain.AdminUser, error) {
	blob, ok, err := g.store.GetItem(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin user: %w", err)
	}
	if !ok || blob == "" {
		return nil, nil
	}

	var user domain.AdminUser
	if err := json.Unmarshal([]byte(blob), &user); err != nil {
		return nil, fmt.Errorf("failed to decode admin user: %w", err)
	}
	return &user, nil
}
