package backend

import (
	"context"
	"net/http"

	"qpinta/internal/domain"
)

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges admin credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	req := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(passwordGrant{Email: email, Password: password})

	resp, err := c.execute("sign in", req, http.MethodPost, authPrefix+"token?grant_type=password")
	if err != nil {
		return nil, err
	}

	var result domain.AuthResult
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, ErrMalformedResponse
	}

	return &result, nil
}
