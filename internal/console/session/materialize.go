package session

import "github.com/voltgrid/console/internal/console/domain"

// Materialize projects a session token into the read-only session handed to
// UI code. Pure: no clock, no network, no mutation of the input. A nil
// token materializes as the anonymous session.
func Materialize(token *domain.SessionToken) domain.Session {
	if token == nil {
		return domain.Anonymous()
	}

	return domain.Session{
		Authenticated: true,
		UserID:        token.Identity.UserID,
		Email:         token.Identity.Email,
		DisplayName:   token.Identity.DisplayName,
		Role:          token.Identity.Role,
		CustomerID:    token.Identity.CustomerID,
		CustomerName:  token.Identity.CustomerName,
		LastLogin:     token.Identity.LastLogin,
		AccessToken:   token.AccessToken,
		ExpiresAt:     token.ExpiresAt,
		Error:         token.Failure.WireTag(),
	}
}
