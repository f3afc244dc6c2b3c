package console_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltgrid/console/pkg/consolesdk"
)

func TestLoginSessionLogout(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, _ := startConsole(t, backend.URL)
	ctx := t.Context()

	before, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.False(t, before.Authenticated)

	require.NoError(t, client.Login(ctx, userEmail, userPassword))

	sess, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.True(t, sess.Authenticated)
	require.Equal(t, "usr-117", sess.UserID)
	require.Equal(t, userEmail, sess.Email)
	require.Equal(t, "Amara Diallo", sess.DisplayName)
	require.Equal(t, "ENGINEER", sess.Role)
	require.Equal(t, "cust-ag-04", sess.CustomerID)
	require.Equal(t, "Coastal Grid Co-op", sess.CustomerName)
	require.Equal(t, time.Date(2026, 8, 20, 14, 5, 0, 0, time.UTC), sess.LastLogin)
	require.Equal(t, "backend-token-1", sess.AccessToken)
	require.Empty(t, sess.Error)
	require.False(t, sess.Refreshing)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), sess.ExpiresAt, 5*time.Second)

	account, err := client.GetAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, "usr-117", account.UserID)
	require.Equal(t, userEmail, account.Email)
	require.Equal(t, "ENGINEER", account.Role)

	require.NoError(t, client.Logout(ctx))

	after, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.False(t, after.Authenticated)
	require.Empty(t, after.AccessToken)
}

func TestAccountRequiresSession(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, _ := startConsole(t, backend.URL)

	_, err := client.GetAccount(t.Context())

	var apiErr *consolesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "unauthenticated", apiErr.Code)
	require.Equal(t, "/login?callbackUrl=%2Fv1%2Faccount", apiErr.LoginURL)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	client, _ := startConsole(t, backend.URL)

	err := client.Login(t.Context(), userEmail, "not the password")

	var apiErr *consolesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "invalid_credentials", apiErr.Code)

	sess, err := client.GetSession(t.Context())
	require.NoError(t, err)
	require.False(t, sess.Authenticated)
}

func TestLoginBackendUnreachable(t *testing.T) {
	t.Parallel()

	backend := newFakeVoltGrid(t)
	backend.Close()
	client, _ := startConsole(t, backend.URL)

	err := client.Login(t.Context(), userEmail, userPassword)

	var apiErr *consolesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "backend_unreachable", apiErr.Code)
}
