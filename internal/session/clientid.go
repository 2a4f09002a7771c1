package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie that carries a browser's signed client identity.
const CookieName = "qpinta_client"

const clientIssuer = "qpinta"

// ErrInvalidClientID is returned when a client cookie does not verify.
var ErrInvalidClientID = errors.New("invalid client identity")

// ClientIDs issues and verifies the signed identity cookie that stands in for
// a browser's local storage origin.
type ClientIDs struct {
	secret []byte
	secure bool
}

func NewClientIDs(secret string, secure bool) *ClientIDs {
	return &ClientIDs{secret: []byte(secret), secure: secure}
}

// Issue mints a fresh client id and its signed token.
func (c *ClientIDs) Issue() (string, string, error) {
	id := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  id,
		Issuer:   clientIssuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign client id: %w", err)
	}
	return id, signed, nil
}

// Parse verifies a signed token and returns the client id it carries.
func (c *ClientIDs) Parse(signed string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithIssuer(clientIssuer))
	if err != nil || !token.Valid {
		return "", ErrInvalidClientID
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidClientID
	}
	return claims.Subject, nil
}

// Cookie builds the long-lived cookie for a signed token.
func (c *ClientIDs) Cookie(signed string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
