package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	t.Parallel()

	for _, r := range []Role{RoleAdmin, RoleEngineer, RoleCustomerAdmin, RoleCustomerUser, RoleAuditor} {
		require.True(t, r.Valid(), "role %s", r)
	}
	require.False(t, Role("SUPERUSER").Valid())
	require.False(t, Role("").Valid())
}

func TestFailureKindWireTags(t *testing.T) {
	t.Parallel()

	require.Empty(t, FailureNone.WireTag())
	require.Equal(t, "RefreshAccessTokenError", FailureRefresh.WireTag())
	require.Equal(t, "BackendUrlChanged", FailureEndpointChanged.WireTag())
}

func TestParseFailureKind(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		for _, k := range []FailureKind{FailureNone, FailureRefresh, FailureEndpointChanged} {
			parsed, err := ParseFailureKind(k.WireTag())
			require.NoError(t, err)
			require.Equal(t, k, parsed)
		}
	})

	t.Run("unknown tag rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseFailureKind("TokenOnFire")
		require.Error(t, err)
	})
}

func TestSessionTokenDueForRefresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	lead := 5 * time.Minute

	cases := []struct {
		name      string
		expiresAt time.Time
		due       bool
	}{
		{"well before lead window", now.Add(30 * time.Minute), false},
		{"just outside window", now.Add(5*time.Minute + time.Second), false},
		{"exactly at window edge", now.Add(5 * time.Minute), true},
		{"inside window", now.Add(2 * time.Minute), true},
		{"already expired", now.Add(-time.Minute), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			token := SessionToken{ExpiresAt: tc.expiresAt}
			require.Equal(t, tc.due, token.DueForRefresh(now, lead))
		})
	}
}

func TestSessionTokenFailed(t *testing.T) {
	t.Parallel()

	require.False(t, SessionToken{}.Failed())
	require.True(t, SessionToken{Failure: FailureRefresh}.Failed())
	require.True(t, SessionToken{Failure: FailureEndpointChanged}.Failed())
}

func TestAnonymous(t *testing.T) {
	t.Parallel()

	s := Anonymous()
	require.False(t, s.Authenticated)
	require.Empty(t, s.UserID)
	require.Empty(t, s.Error)
}
