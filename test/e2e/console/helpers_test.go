package console_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltgrid/console/internal/console/app"
	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/consolesdk"
	"github.com/voltgrid/console/pkg/cryptox"
	"github.com/voltgrid/console/pkg/idx"
)

/*
 * End-to-end tests for the console: the full application (config, signing
 * key, backend client, lifecycle manager, HTTP router) is mounted on an
 * in-process server and driven through the consolesdk client, with the
 * remote VoltGrid API replaced by a scriptable fake.
 */

const (
	sessionSecret = "e2e-session-secret-0123456789abcdef"
	cookieName    = "voltgrid_session"

	userEmail    = "amara@coastalgrid.example"
	userPassword = "correct horse battery"
)

// fakeVoltGrid is an in-process stand-in for the remote VoltGrid API: one
// password login, one profile read, one token refresh. Access tokens are
// numbered in the order they are issued.
type fakeVoltGrid struct {
	*httptest.Server

	mu           sync.Mutex
	refreshFails bool
	issued       int
	refreshCalls int
}

func newFakeVoltGrid(t *testing.T) *fakeVoltGrid {
	t.Helper()

	f := &fakeVoltGrid{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		if r.PostFormValue("username") != userEmail || r.PostFormValue("password") != userPassword {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid credentials"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, f.nextToken())
	})

	mux.HandleFunc("GET /v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "usr-117",
			"email": "amara@coastalgrid.example",
			"role": "ENGINEER",
			"customer_id": "cust-ag-04",
			"customer": {"name": "Coastal Grid Co-op"},
			"first_name": "Amara",
			"last_name": "Diallo",
			"last_login": "2026-08-20T14:05:00Z"
		}`))
	})

	mux.HandleFunc("POST /v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		fails := f.refreshFails
		f.refreshCalls++
		f.mu.Unlock()

		if fails {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"token revoked"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q}`, f.nextToken())
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeVoltGrid) nextToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return fmt.Sprintf("backend-token-%d", f.issued)
}

func (f *fakeVoltGrid) setRefreshFails(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFails = v
}

func (f *fakeVoltGrid) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// startConsole boots the full console application against the given backend
// and returns an SDK client bound to an in-process server.
func startConsole(t *testing.T, backendURL string) (*consolesdk.Client, *httptest.Server) {
	t.Helper()

	application, err := app.New(app.Config{
		Addr:                      ":0",
		BackendBaseURL:            backendURL,
		BackendAPIVersion:         "v1",
		BackendClientID:           "console",
		BackendClientSecret:       "console-secret",
		BackendTimeout:            5 * time.Second,
		SessionSecret:             sessionSecret,
		SessionLifetimeMinutes:    30,
		SessionRefreshLeadMinutes: 5,
		CookieName:                cookieName,
		CookieMaxAge:              168 * time.Hour,
		Env:                       "dev",
		LogLevel:                  "error",
		LogFormat:                 "json",
		ShutdownGracePeriod:       time.Second,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	return consolesdk.NewClient(srv.URL), srv
}

// testIdentity mirrors the profile the fake backend serves.
func testIdentity() domain.Identity {
	return domain.Identity{
		UserID:       "usr-117",
		Email:        userEmail,
		DisplayName:  "Amara Diallo",
		Role:         domain.RoleEngineer,
		CustomerID:   "cust-ag-04",
		CustomerName: "Coastal Grid Co-op",
		LastLogin:    time.Date(2026, 8, 20, 14, 5, 0, 0, time.UTC),
	}
}

// mintToken signs a session token with the console's own key so a test can
// hand the console a cookie in any lifecycle state.
func mintToken(t *testing.T, tok domain.SessionToken) string {
	t.Helper()
	return mintTokenWithSecret(t, sessionSecret, tok)
}

// mintTokenWithSecret signs with an arbitrary secret, which lets a test forge
// a structurally valid cookie from a different deployment.
func mintTokenWithSecret(t *testing.T, secret string, tok domain.SessionToken) string {
	t.Helper()

	key, err := cryptox.DeriveSigningKey(secret)
	require.NoError(t, err)

	codec, err := session.NewCodec(key, "voltgrid-console")
	require.NoError(t, err)

	raw, err := codec.Encode(tok)
	require.NoError(t, err)
	return raw
}

// nearExpiryToken returns a valid token whose expiry sits expiresIn from
// now, inside the default five-minute refresh lead when expiresIn is small.
func nearExpiryToken(backendURL, accessToken string, expiresIn time.Duration) domain.SessionToken {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.SessionToken{
		ID:                  idx.New(),
		Identity:            testIdentity(),
		AccessToken:         accessToken,
		EndpointFingerprint: cryptox.EndpointFingerprint(backendURL, "v1"),
		IssuedAt:            now.Add(expiresIn - 30*time.Minute),
		ExpiresAt:           now.Add(expiresIn),
	}
}

// setCookie places a raw session cookie on the SDK client's jar as if a
// previous visit had stored it.
func setCookie(t *testing.T, client *consolesdk.Client, consoleURL, raw string) {
	t.Helper()

	u, err := url.Parse(consoleURL)
	require.NoError(t, err)
	client.HTTPClient.Jar.SetCookies(u, []*http.Cookie{{Name: cookieName, Value: raw, Path: "/"}})
}

// waitForState drains updates until the wanted watchdog state arrives.
func waitForState(t *testing.T, updates <-chan consolesdk.Snapshot, want consolesdk.State) consolesdk.Snapshot {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.State == want {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for watchdog state %q", want)
			return consolesdk.Snapshot{}
		}
	}
}
