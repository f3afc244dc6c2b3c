package domain

import (
	"fmt"
	"time"

	"github.com/voltgrid/console/pkg/idx"
)

// FailureKind is the sticky failure state of a session token. Modeled as an
// enum rather than a free-form string so an impossible failure value cannot
// be constructed in process; the wire tags exist only at the codec boundary.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRefresh
	FailureEndpointChanged
)

const (
	failureRefreshTag         = "RefreshAccessTokenError"
	failureEndpointChangedTag = "BackendUrlChanged"
)

// WireTag returns the tag embedded in the session token claims, empty for
// FailureNone.
func (k FailureKind) WireTag() string {
	switch k {
	case FailureRefresh:
		return failureRefreshTag
	case FailureEndpointChanged:
		return failureEndpointChangedTag
	default:
		return ""
	}
}

func (k FailureKind) String() string {
	if k == FailureNone {
		return "none"
	}
	return k.WireTag()
}

// ParseFailureKind maps a claims tag back to its kind. An empty tag is
// FailureNone; anything else unrecognized is an error so a tampered or
// future tag cannot masquerade as a healthy token.
func ParseFailureKind(tag string) (FailureKind, error) {
	switch tag {
	case "":
		return FailureNone, nil
	case failureRefreshTag:
		return FailureRefresh, nil
	case failureEndpointChangedTag:
		return FailureEndpointChanged, nil
	default:
		return FailureNone, fmt.Errorf("unknown session failure tag %q", tag)
	}
}

// SessionToken is the signed envelope the console exchanges with the
// browser. It owns the backend access token; the access token is never
// stored anywhere else.
type SessionToken struct {
	ID                  idx.ID
	Identity            Identity
	AccessToken         string // opaque bearer credential for the backend
	EndpointFingerprint string // fingerprint of the backend that issued it
	IssuedAt            time.Time
	ExpiresAt           time.Time
	Failure             FailureKind
}

// Failed reports whether the token carries a sticky failure.
func (t SessionToken) Failed() bool {
	return t.Failure != FailureNone
}

// DueForRefresh reports whether now falls inside the refresh lead window,
// i.e. now >= ExpiresAt - lead. Already-expired tokens are due as well.
func (t SessionToken) DueForRefresh(now time.Time, lead time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-lead))
}
