package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/pkg/idx"
	"github.com/voltgrid/console/pkg/slogx"
)

const (
	// DefaultLifetime is how long a freshly issued or refreshed token lives.
	DefaultLifetime = 30 * time.Minute

	// DefaultRefreshLead is the margin before expiry at which a proactive
	// refresh is attempted.
	DefaultRefreshLead = 5 * time.Minute
)

// Refresher trades a backend access token for a new one.
type Refresher interface {
	Refresh(ctx context.Context, accessToken string) (string, error)
}

// Manager owns the token state machine: issue at login, then on every
// evaluation either pass the token through, refresh it, or mark it failed.
// Failures are sticky; a failed token is returned untouched until a fresh
// login replaces it.
//
// Concurrent evaluations of the same token share a single refresh call
// through an in-flight registry keyed by token id. Cross-process races
// (several console replicas refreshing the same cookie) are accepted:
// refresh is idempotent on the backend and the last cookie write wins.
type Manager struct {
	Backend     Refresher
	Fingerprint string        // fingerprint of the currently configured backend
	Lifetime    time.Duration // zero means DefaultLifetime
	RefreshLead time.Duration // zero means DefaultRefreshLead

	// Now is overridable for deterministic expiry arithmetic in tests;
	// nil means time.Now.
	Now func() time.Time

	mu       sync.Mutex
	inflight map[idx.ID]*refreshCall
}

type refreshCall struct {
	done  chan struct{}
	token domain.SessionToken
}

// Issue mints the first session token for a fresh login.
func (m *Manager) Issue(ctx context.Context, identity domain.Identity, accessToken string) domain.SessionToken {
	stamp := m.stamp()
	token := domain.SessionToken{
		ID:                  idx.New(),
		Identity:            identity,
		AccessToken:         accessToken,
		EndpointFingerprint: m.Fingerprint,
		IssuedAt:            stamp,
		ExpiresAt:           stamp.Add(m.lifetime()),
	}

	slogx.FromContext(ctx).Info("session issued",
		slog.String("token_id", token.ID.String()),
		slog.String("user_id", identity.UserID),
		slog.String("role", string(identity.Role)),
		slog.Time("expires_at", token.ExpiresAt),
	)
	return token
}

// Evaluate decides the next state of an existing token. It never returns an
// error: every failure is encoded into the token itself so the rendering
// path stays failure-free.
func (m *Manager) Evaluate(ctx context.Context, token domain.SessionToken) domain.SessionToken {
	// Sticky: a failed token is never retried and never healed here.
	if token.Failed() {
		return token
	}

	// Endpoint drift outranks everything else, including expiry.
	if token.EndpointFingerprint != m.Fingerprint {
		token.Failure = domain.FailureEndpointChanged
		slogx.FromContext(ctx).Warn("session token issued by a different backend endpoint",
			slog.String("token_id", token.ID.String()),
			slog.String("user_id", token.Identity.UserID),
			slog.String("failure", token.Failure.String()),
		)
		return token
	}

	if !token.DueForRefresh(m.now(), m.lead()) {
		return token
	}

	return m.refresh(ctx, token)
}

// Refreshing reports whether a refresh for the given token id is in flight.
// The session endpoint exposes this so the client can show a non-blocking
// refresh indicator.
func (m *Manager) Refreshing(id idx.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[id]
	return ok
}

// refresh performs the backend round-trip, deduplicating concurrent calls
// for the same token id. Followers block until the leader's result is ready
// and share it.
func (m *Manager) refresh(ctx context.Context, token domain.SessionToken) domain.SessionToken {
	m.mu.Lock()
	if m.inflight == nil {
		m.inflight = make(map[idx.ID]*refreshCall)
	}
	if call, ok := m.inflight[token.ID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token
		case <-ctx.Done():
			// The caller's request died; hand its token back untouched.
			return token
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight[token.ID] = call
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, token.ID)
		m.mu.Unlock()
	}()

	l := slogx.FromContext(ctx)
	l.Debug("refreshing backend access token",
		slog.String("token_id", token.ID.String()),
		slog.String("user_id", token.Identity.UserID),
		slog.Time("expires_at", token.ExpiresAt),
	)

	next := token
	// Followers adopt this result, so the round trip must not be aborted by
	// the leader's own request dying; the backend client's timeout still
	// bounds it.
	accessToken, err := m.Backend.Refresh(context.WithoutCancel(ctx), token.AccessToken)
	if err != nil {
		// Terminal until a fresh login. Expiry stays as it was.
		next.Failure = domain.FailureRefresh
		l.Error("access token refresh failed",
			slog.String("token_id", token.ID.String()),
			slog.String("user_id", token.Identity.UserID),
			slog.String("failure", next.Failure.String()),
			slog.Any("error", err),
		)
	} else {
		stamp := m.stamp()
		next.AccessToken = accessToken
		next.IssuedAt = stamp
		next.ExpiresAt = stamp.Add(m.lifetime())
		l.Info("access token refreshed",
			slog.String("token_id", token.ID.String()),
			slog.String("user_id", token.Identity.UserID),
			slog.Time("expires_at", next.ExpiresAt),
		)
	}

	call.token = next
	close(call.done)
	return next
}

func (m *Manager) lifetime() time.Duration {
	if m.Lifetime > 0 {
		return m.Lifetime
	}
	return DefaultLifetime
}

func (m *Manager) lead() time.Duration {
	if m.RefreshLead > 0 {
		return m.RefreshLead
	}
	return DefaultRefreshLead
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// stamp is the instant recorded in minted tokens, truncated to seconds so a
// token survives the codec round trip unchanged.
func (m *Manager) stamp() time.Time {
	return m.now().UTC().Truncate(time.Second)
}
