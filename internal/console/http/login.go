package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voltgrid/console/internal/console/backend"
	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

// Authenticator exchanges a credential pair for an identity plus the backend
// access token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.Identity, string, error)
}

type LoginHandler struct {
	Backend Authenticator
	Manager *session.Manager
	Codec   *session.Codec
	Cookie  httpx.CookieOptions
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP runs the credential exchange and, on success, mints the first
// session token and sets the session cookie. 204 on success.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "body must be JSON with email and password")
		return
	}

	identity, accessToken, err := h.Backend.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			log.Info("login rejected", slog.String("email", req.Email))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		log.Warn("login failed against backend", slog.String("email", req.Email), slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadGateway, "backend_unreachable", "could not reach the VoltGrid backend, try again")
		return
	}

	token := h.Manager.Issue(ctx, identity, accessToken)
	raw, err := h.Codec.Encode(token)
	if err != nil {
		log.Error("failed to encode session token", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "could not establish session")
		return
	}

	httpx.SetSessionCookie(w, h.Cookie, raw)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
