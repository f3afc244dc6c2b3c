package http

import (
	"net/http"

	"github.com/voltgrid/console/pkg/httpx"
)

// AccountHandler returns the identity of the authenticated caller. Served
// entirely from the evaluated session; the dashboard header uses it without
// costing a backend call.
type AccountHandler struct{}

type accountResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

func (h *AccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no session")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, accountResponse{
		UserID:       sess.UserID,
		Email:        sess.Email,
		DisplayName:  sess.DisplayName,
		Role:         string(sess.Role),
		CustomerID:   sess.CustomerID,
		CustomerName: sess.CustomerName,
	})
}
