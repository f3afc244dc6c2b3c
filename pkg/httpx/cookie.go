package httpx

import (
	"net/http"
	"time"
)

// CookieOptions configures the session cookie written by the console.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// SetSessionCookie writes the signed session envelope. The cookie outlives
// the token's own expiry so the client can still observe an expired or
// failed session instead of silently losing it.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
