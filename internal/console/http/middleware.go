package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

type sessionCtxKey struct{}
type tokenCtxKey struct{}

// ContextWithSession stores the evaluated session and its token on the
// request context. The token may be nil for anonymous requests.
func ContextWithSession(ctx context.Context, sess domain.Session, token *domain.SessionToken) context.Context {
	ctx = context.WithValue(ctx, sessionCtxKey{}, sess)
	if token != nil {
		ctx = context.WithValue(ctx, tokenCtxKey{}, token)
	}
	return ctx
}

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(domain.Session)
	return sess, ok
}

// TokenFromContext returns the raw session token for handlers that forward
// the backend access token upstream.
func TokenFromContext(ctx context.Context) (*domain.SessionToken, bool) {
	token, ok := ctx.Value(tokenCtxKey{}).(*domain.SessionToken)
	return token, ok
}

// SessionMiddleware evaluates the session cookie once per request and hands
// the result to handlers through the context. Handlers never look the
// session up through anything ambient.
type SessionMiddleware struct {
	Manager *session.Manager
	Codec   *session.Codec
	Cookie  httpx.CookieOptions
}

// WithSession never fails the pipeline: a missing, malformed, or foreign
// cookie simply yields the anonymous session. When evaluation replaced the
// token, the cookie is rotated on the way out.
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		cookie, err := r.Cookie(m.Cookie.Name)
		if err != nil {
			next.ServeHTTP(w, r.WithContext(ContextWithSession(ctx, domain.Anonymous(), nil)))
			return
		}

		token, err := m.Codec.Decode(cookie.Value)
		if err != nil {
			log.Warn("session cookie rejected", slog.Any("error", err))
			httpx.ClearSessionCookie(w, m.Cookie)
			next.ServeHTTP(w, r.WithContext(ContextWithSession(ctx, domain.Anonymous(), nil)))
			return
		}

		evaluated := m.Manager.Evaluate(ctx, token)
		rotateCookie(w, log, m.Codec, m.Cookie, token, evaluated)

		ctx = ContextWithSession(ctx, session.Materialize(&evaluated), &evaluated)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession guards a route: anonymous requests get 401 plus the login
// URL, with the original path carried as a callback parameter so the client
// can return the user where they were.
func RequireSession(loginPath string) httpx.Middleware {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || !sess.Authenticated {
				httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":     "unauthenticated",
					"login_url": loginPath + "?callbackUrl=" + url.QueryEscape(r.URL.Path),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
