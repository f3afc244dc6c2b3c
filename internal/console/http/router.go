// Package http mounts the console's session API: login/logout, the session
// endpoint the client watchdog polls, and the middleware that attaches an
// evaluated session to every request.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

// DefaultLoginPath is the dashboard view unauthenticated users are sent to.
const DefaultLoginPath = "/login"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Backend   Authenticator
	Codec     *session.Codec
	Manager   *session.Manager
	Cookie    httpx.CookieOptions
	LoginPath string
}

func NewRouter(
	backend Authenticator,
	codec *session.Codec,
	manager *session.Manager,
	cookie httpx.CookieOptions,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Backend:      backend,
		Codec:        codec,
		Manager:      manager,
		Cookie:       cookie,
		LoginPath:    DefaultLoginPath,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{
		Backend: r.Backend,
		Manager: r.Manager,
		Codec:   r.Codec,
		Cookie:  r.Cookie,
	}

	// Credential endpoint: strict per-IP limit against brute force.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout", &LogoutHandler{Cookie: r.Cookie})
}

func (r *Router) registerSession() {
	sessions := &SessionHandler{
		Manager: r.Manager,
		Codec:   r.Codec,
		Cookie:  r.Cookie,
	}

	// Polled by every open dashboard tab, so the limit stays lenient.
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(sessions,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	withSession := &SessionMiddleware{
		Manager: r.Manager,
		Codec:   r.Codec,
		Cookie:  r.Cookie,
	}
	r.Mux.Handle("GET /v1/account",
		httpx.Chain(&AccountHandler{},
			withSession.WithSession,
			RequireSession(r.LoginPath),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
