package http

import (
	"net/http"

	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

type LogoutHandler struct {
	Cookie httpx.CookieOptions
}

// ServeHTTP destroys the local session immediately. The backend defines no
// logout call, so clearing the cookie is the whole operation; the embedded
// access token simply ages out.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.ClearSessionCookie(w, h.Cookie)
	httpx.NoCache(w)
	slogx.FromContext(r.Context()).Info("session cleared")
	w.WriteHeader(http.StatusNoContent)
}
