/*
Package consolesdk provides a Go client for the VoltGrid console session API
and the client-side expiry watchdog that drives session-dependent UI state.

# Overview

The console is a backend-for-frontend: it authenticates users against the
VoltGrid backend, keeps the session in an HttpOnly cookie, and exposes the
materialized session at GET /v1/session. This package wraps that surface for
Go programs (dashboard shells, smoke tests, operator tooling) the same way
the browser consumes it.

# Client

A Client owns a cookie jar, so one Client behaves like one browser session:

	client := consolesdk.NewClient("https://console.voltgrid.example")

	if err := client.Login(ctx, "admin@example.com", "password"); err != nil {
		log.Fatal(err)
	}

	sess, err := client.GetSession(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("expires at:", sess.ExpiresAt)

The console refreshes the embedded backend access token transparently; a
later GetSession may carry a newer AccessToken and ExpiresAt without any
action from the caller.

# Watchdog

The Watchdog polls the session on an interval and classifies each
observation into one of four states:

  - StateNormal: render children unmodified
  - StateRefreshing: non-blocking indicator, refresh in flight
  - StateExpired: sticky failure, blocking re-login prompt
  - StateUnauthenticated: redirect to the login view

Its lifetime is bound to a context; cancelling the context stops polling
with no dangling timers:

	w := &consolesdk.Watchdog{
		Source:      client,
		Interval:    30 * time.Second,
		CurrentPath: func() string { return router.Path() },
		OnUpdate: func(snap consolesdk.Snapshot) {
			ui.SetSessionState(snap)
		},
	}

	go w.Run(viewCtx)

When the session is gone and the user is not on the login view, the
snapshot carries a RedirectURL of the form
"/login?callbackUrl=%2Fdevices%2Ffleet-7" so the original view is restored
after re-authentication.

# Error Handling

Non-2xx console responses decode into *APIError with the HTTP status and
the console's machine-readable code:

	_, err := client.GetAccount(ctx)
	var apiErr *consolesdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == "unauthenticated" {
		fmt.Println("log in at:", apiErr.LoginURL)
	}

Sticky session failures are not transport errors: they arrive inside the
Session value with Error set to ErrorCodeRefreshFailed or
ErrorCodeEndpointChanged and Failed() reporting true.

# Thread Safety

Client is safe for concurrent use. A Watchdog runs its polls serially on
the Run goroutine; Last may be called from any goroutine.
*/
package consolesdk
