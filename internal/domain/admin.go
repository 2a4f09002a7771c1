package domain

import "encoding/json"

// AdminUser is the user record persisted with an admin session. Only the
// email is displayed; the raw blob is kept as the auth service sent it.
type AdminUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the full blob alongside the known fields.
func (u *AdminUser) UnmarshalJSON(data []byte) error {
	type plain AdminUser
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = AdminUser(p)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original blob back when there is one.
func (u AdminUser) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	type plain AdminUser
	return json.Marshal(plain(u))
}

// AuthResult is what a successful password sign-in returns.
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         AdminUser `json:"user"`
}
