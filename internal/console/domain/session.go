package domain

import "time"

// Session is the read-only projection of a session token that UI code and
// the client SDK consume. Rebuilt on every evaluation, never mutated.
type Session struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Role          Role      `json:"role,omitempty"`
	CustomerID    string    `json:"customer_id,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
	LastLogin     time.Time `json:"last_login,omitzero"`
	AccessToken   string    `json:"access_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	Error         string    `json:"error,omitempty"` // sticky failure wire tag
}

// Anonymous is the session of a visitor with no (usable) token.
func Anonymous() Session {
	return Session{Authenticated: false}
}
