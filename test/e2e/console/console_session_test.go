package console_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltgrid/console/pkg/consolesdk"
	"github.com/voltgrid/console/pkg/cryptox"
)

func TestSessionRefreshRotatesToken(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, srv := startConsole(t, backend.URL)
	ctx := t.Context()

	minted := nearExpiryToken(backend.URL, "backend-token-0", 2*time.Minute)
	setCookie(t, client, srv.URL, mintToken(t, minted))

	sess, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.True(t, sess.Authenticated)
	require.Empty(t, sess.Error)
	require.Equal(t, "backend-token-1", sess.AccessToken)
	require.True(t, sess.ExpiresAt.After(minted.ExpiresAt))
	require.WithinDuration(t, time.Now().Add(30*time.Minute), sess.ExpiresAt, 5*time.Second)
	require.Equal(t, 1, backend.refreshes())

	// The rotated cookie rode back on the response; the next poll passes it
	// through without another refresh.
	again, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "backend-token-1", again.AccessToken)
	require.Equal(t, sess.ExpiresAt, again.ExpiresAt)
	require.Equal(t, 1, backend.refreshes())
}

func TestSessionRefreshFailureIsSticky(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	backend.setRefreshFails(true)
	client, srv := startConsole(t, backend.URL)
	ctx := t.Context()

	minted := nearExpiryToken(backend.URL, "backend-token-0", 2*time.Minute)
	setCookie(t, client, srv.URL, mintToken(t, minted))

	sess, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.True(t, sess.Authenticated)
	require.True(t, sess.Failed())
	require.Equal(t, consolesdk.ErrorCodeRefreshFailed, sess.Error)
	require.Equal(t, minted.ExpiresAt, sess.ExpiresAt)
	require.Equal(t, "backend-token-0", sess.AccessToken)
	require.Equal(t, 1, backend.refreshes())

	// Sticky even after the backend recovers: no retry until a fresh login.
	backend.setRefreshFails(false)
	again, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, consolesdk.ErrorCodeRefreshFailed, again.Error)
	require.Equal(t, minted.ExpiresAt, again.ExpiresAt)
	require.Equal(t, 1, backend.refreshes())

	// A fresh login replaces the failed token outright.
	require.NoError(t, client.Login(ctx, userEmail, userPassword))
	healed, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.True(t, healed.Authenticated)
	require.Empty(t, healed.Error)
}

func TestSessionEndpointChangeOutranksRefresh(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, srv := startConsole(t, backend.URL)

	// Minted against a backend this console is no longer pointed at, and due
	// for refresh at the same time.
	stale := nearExpiryToken(backend.URL, "backend-token-0", 2*time.Minute)
	stale.EndpointFingerprint = cryptox.EndpointFingerprint("https://old.voltgrid.example", "v1")
	setCookie(t, client, srv.URL, mintToken(t, stale))

	sess, err := client.GetSession(t.Context())
	require.NoError(t, err)
	require.True(t, sess.Authenticated)
	require.Equal(t, consolesdk.ErrorCodeEndpointChanged, sess.Error)
	require.Zero(t, backend.refreshes(), "endpoint drift must not trigger a refresh call")
}

func TestSessionGarbageCookieIsAnonymous(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, srv := startConsole(t, backend.URL)

	setCookie(t, client, srv.URL, "not-a-session-token")

	sess, err := client.GetSession(t.Context())
	require.NoError(t, err)
	require.False(t, sess.Authenticated)
	require.Empty(t, sess.Error)
	require.Zero(t, backend.refreshes())
}

func TestSessionForeignSignatureIsAnonymous(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, srv := startConsole(t, backend.URL)

	// Same claims, signed under a different deployment's secret.
	foreign := mintTokenWithSecret(t, "some-other-deployment-secret", nearExpiryToken(backend.URL, "backend-token-0", 20*time.Minute))
	setCookie(t, client, srv.URL, foreign)

	sess, err := client.GetSession(t.Context())
	require.NoError(t, err)
	require.False(t, sess.Authenticated)
}
