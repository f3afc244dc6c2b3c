package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltgrid/console/internal/console/backend"
	httpapi "github.com/voltgrid/console/internal/console/http"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/cryptox"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/slogx"
)

// BuildVersion is stamped at build time via ldflags.
var BuildVersion = "v0.1.0"

// sessionIssuer is the iss claim on every session token this console mints.
const sessionIssuer = "voltgrid-console"

// Application encapsulates the console with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	backend *backend.Client
	codec   *session.Codec
	manager *session.Manager

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "console",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSession(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("console starting",
		slog.String("addr", app.cfg.Addr),
		slog.String("version", BuildVersion),
		slog.String("backend", app.cfg.BackendBaseURL),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Handler exposes the console's HTTP surface for embedding and tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Shutdown gracefully shuts down the HTTP server, giving outstanding
// requests the configured grace period to complete.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down console...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.String("error", err.Error()))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("console stopped")
	return nil
}

// initSession derives the signing key and builds the backend client, the
// token codec, and the lifecycle manager.
func (app *Application) initSession() error {
	key, err := cryptox.DeriveSigningKey(app.cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("failed to derive session signing key: %w", err)
	}

	codec, err := session.NewCodec(key, sessionIssuer)
	if err != nil {
		return fmt.Errorf("failed to initialize session codec: %w", err)
	}
	app.codec = codec

	app.backend = backend.New(backend.Config{
		BaseURL:      app.cfg.BackendBaseURL,
		APIVersion:   app.cfg.BackendAPIVersion,
		ClientID:     app.cfg.BackendClientID,
		ClientSecret: app.cfg.BackendClientSecret,
		Scope:        app.cfg.BackendScope,
		Timeout:      app.cfg.BackendTimeout,
	})

	app.manager = &session.Manager{
		Backend:     app.backend,
		Fingerprint: cryptox.EndpointFingerprint(app.cfg.BackendBaseURL, app.cfg.BackendAPIVersion),
		Lifetime:    app.cfg.SessionLifetime(),
		RefreshLead: app.cfg.SessionRefreshLead(),
	}

	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.backend,
		app.codec,
		app.manager,
		httpx.CookieOptions{
			Name:   app.cfg.CookieName,
			Secure: app.cfg.CookieSecure,
			MaxAge: app.cfg.CookieMaxAge,
		},
		BuildVersion,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
