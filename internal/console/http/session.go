package http

import (
	"log/slog"
	"net/http"

	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

type SessionHandler struct {
	Manager *session.Manager
	Codec   *session.Codec
	Cookie  httpx.CookieOptions
}

// sessionResponse is what the watchdog polls: the materialized session plus
// a flag telling the client a refresh is running for its token right now.
type sessionResponse struct {
	domain.Session
	Refreshing bool `json:"refreshing"`
}

// ServeHTTP evaluates the caller's session cookie and returns the
// materialized session. When another request is already refreshing the same
// token the current state is returned immediately with refreshing=true
// instead of blocking the poll behind the backend round-trip.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	httpx.NoCache(w)

	cookie, err := r.Cookie(h.Cookie.Name)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, sessionResponse{Session: domain.Anonymous()})
		return
	}

	token, err := h.Codec.Decode(cookie.Value)
	if err != nil {
		// A cookie we cannot trust is the same as no cookie, except we also
		// drop it so the browser stops resending it.
		log.Warn("session cookie rejected", slog.Any("error", err))
		httpx.ClearSessionCookie(w, h.Cookie)
		httpx.WriteJSON(w, http.StatusOK, sessionResponse{Session: domain.Anonymous()})
		return
	}

	if h.Manager.Refreshing(token.ID) {
		httpx.WriteJSON(w, http.StatusOK, sessionResponse{
			Session:    session.Materialize(&token),
			Refreshing: true,
		})
		return
	}

	next := h.Manager.Evaluate(ctx, token)
	rotateCookie(w, log, h.Codec, h.Cookie, token, next)

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Session: session.Materialize(&next)})
}

// rotateCookie re-signs and sets the session cookie when evaluation replaced
// the token. Encode failures keep the old cookie; the next evaluation will
// redo the work.
func rotateCookie(
	w http.ResponseWriter,
	log *slog.Logger,
	codec *session.Codec,
	opts httpx.CookieOptions,
	before, after domain.SessionToken,
) {
	if after == before {
		return
	}
	raw, err := codec.Encode(after)
	if err != nil {
		log.Error("failed to re-encode session token", slog.Any("error", err))
		return
	}
	httpx.SetSessionCookie(w, opts, raw)
}
