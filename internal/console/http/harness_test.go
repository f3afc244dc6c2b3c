package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/internal/console/session"
	"github.com/voltgrid/console/pkg/cryptox"
	"github.com/voltgrid/console/pkg/httpx"
	"github.com/voltgrid/console/pkg/idx"
	"github.com/voltgrid/console/pkg/slogx"
)

var testNow = time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)

const testFingerprint = "fp-current"

type stubAuth struct {
	identity domain.Identity
	token    string
	err      error
	calls    atomic.Int64
}

func (s *stubAuth) Authenticate(ctx context.Context, email, password string) (domain.Identity, string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.Identity{}, "", s.err
	}
	return s.identity, s.token, nil
}

type refreshFunc func(ctx context.Context, accessToken string) (string, error)

func (f refreshFunc) Refresh(ctx context.Context, accessToken string) (string, error) {
	return f(ctx, accessToken)
}

var noRefresh refreshFunc = func(ctx context.Context, accessToken string) (string, error) {
	return "", errors.New("unexpected refresh call")
}

func testCodec(t *testing.T) *session.Codec {
	t.Helper()
	key, err := cryptox.DeriveSigningKey("http-handler-test-secret")
	require.NoError(t, err)
	codec, err := session.NewCodec(key, "voltgrid-console")
	require.NoError(t, err)
	return codec
}

func testManager(refresh session.Refresher) *session.Manager {
	return &session.Manager{
		Backend:     refresh,
		Fingerprint: testFingerprint,
		Now:         func() time.Time { return testNow },
	}
}

func testCookieOpts() httpx.CookieOptions {
	return httpx.CookieOptions{Name: "voltgrid_session", MaxAge: 7 * 24 * time.Hour}
}

func testIdentity() domain.Identity {
	return domain.Identity{
		UserID:       "usr_8842",
		Email:        "ops@acme.example",
		DisplayName:  "Robin Okafor",
		Role:         domain.RoleCustomerAdmin,
		CustomerID:   "cust_17",
		CustomerName: "Acme Energy",
		LastLogin:    time.Date(2026, 8, 20, 14, 5, 0, 0, time.UTC),
	}
}

func mintToken(expiresIn time.Duration) domain.SessionToken {
	return domain.SessionToken{
		ID:                  idx.New(),
		Identity:            testIdentity(),
		AccessToken:         "backend-token-1",
		EndpointFingerprint: testFingerprint,
		IssuedAt:            testNow.Add(expiresIn - session.DefaultLifetime),
		ExpiresAt:           testNow.Add(expiresIn),
	}
}

// quiet swaps the request context logger for a discarding one.
func quiet(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	return req.WithContext(slogx.WithContext(req.Context(), slogx.NewNop()))
}

func withCookie(t *testing.T, req *http.Request, codec *session.Codec, token domain.SessionToken) *http.Request {
	t.Helper()
	raw, err := codec.Encode(token)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: testCookieOpts().Name, Value: raw})
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieOpts().Name {
			return c
		}
	}
	return nil
}
