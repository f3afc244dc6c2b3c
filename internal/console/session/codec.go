// Package session owns the console's session envelope: the signed token
// codec, the refresh/expiry lifecycle, and the projection consumed by UI
// code. The codec only (de)serializes; what an expiry means is decided by
// the Manager.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voltgrid/console/internal/console/domain"
	"github.com/voltgrid/console/pkg/idx"
)

var (
	// ErrMalformed covers anything that is not a well-formed session token
	// from this console: truncated strings, missing required claims,
	// unknown failure tags, or a foreign issuer.
	ErrMalformed = errors.New("session: malformed token")

	// ErrInvalidSignature covers structurally valid tokens signed with a
	// different key.
	ErrInvalidSignature = errors.New("session: invalid signature")

	errKeySize = errors.New("session: signing key must be 32 bytes")
)

// sessionClaims is the wire shape of a session token. Unknown extra claims
// are ignored on decode so older consoles survive newer token layouts.
type sessionClaims struct {
	jwt.RegisteredClaims

	Email        string `json:"email,omitempty"`
	DisplayName  string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	LastLogin    string `json:"last_login,omitempty"`

	AccessToken         string `json:"backend_token"`
	EndpointFingerprint string `json:"backend_endpoint_fingerprint"`
	Failure             string `json:"error,omitempty"`
}

// Codec signs and verifies session tokens with HS256. Safe for concurrent
// use; the key never leaves it.
type Codec struct {
	key    []byte
	issuer string
}

// NewCodec builds a codec around a derived signing key. An empty issuer
// disables the issuer check on decode.
func NewCodec(key []byte, issuer string) (*Codec, error) {
	if len(key) != 32 {
		return nil, errKeySize
	}
	return &Codec{key: key, issuer: issuer}, nil
}

// Encode signs the token into its opaque string form. Identical tokens
// always encode to identical strings.
func (c *Codec) Encode(token domain.SessionToken) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   token.Identity.UserID,
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
			ID:        token.ID.String(),
		},
		Email:               token.Identity.Email,
		DisplayName:         token.Identity.DisplayName,
		Role:                string(token.Identity.Role),
		CustomerID:          token.Identity.CustomerID,
		CustomerName:        token.Identity.CustomerName,
		AccessToken:         token.AccessToken,
		EndpointFingerprint: token.EndpointFingerprint,
		Failure:             token.Failure.WireTag(),
	}
	if !token.Identity.LastLogin.IsZero() {
		claims.LastLogin = token.Identity.LastLogin.Format(time.RFC3339Nano)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and rebuilds the session token. Expiry is
// not checked here: an expired-but-genuine token must decode so the
// lifecycle can decide what to do with it.
func (c *Codec) Decode(raw string) (domain.SessionToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims sessionClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.SessionToken{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return domain.SessionToken{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return c.fromClaims(claims)
}

// fromClaims enforces the required fields and maps the wire claims back to
// the domain token.
func (c *Codec) fromClaims(claims sessionClaims) (domain.SessionToken, error) {
	if c.issuer != "" && claims.Issuer != c.issuer {
		return domain.SessionToken{}, fmt.Errorf("%w: issuer %q", ErrMalformed, claims.Issuer)
	}
	if claims.Subject == "" {
		return domain.SessionToken{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if claims.AccessToken == "" {
		return domain.SessionToken{}, fmt.Errorf("%w: missing backend token", ErrMalformed)
	}
	if claims.EndpointFingerprint == "" {
		return domain.SessionToken{}, fmt.Errorf("%w: missing endpoint fingerprint", ErrMalformed)
	}
	if claims.ExpiresAt == nil {
		return domain.SessionToken{}, fmt.Errorf("%w: missing expiry", ErrMalformed)
	}

	id, err := idx.Parse(claims.ID)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("%w: bad token id", ErrMalformed)
	}

	failure, err := domain.ParseFailureKind(claims.Failure)
	if err != nil {
		return domain.SessionToken{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var lastLogin time.Time
	if claims.LastLogin != "" {
		lastLogin, err = time.Parse(time.RFC3339Nano, claims.LastLogin)
		if err != nil {
			return domain.SessionToken{}, fmt.Errorf("%w: bad last_login", ErrMalformed)
		}
	}

	token := domain.SessionToken{
		ID: id,
		Identity: domain.Identity{
			UserID:       claims.Subject,
			Email:        claims.Email,
			DisplayName:  claims.DisplayName,
			Role:         domain.Role(claims.Role),
			CustomerID:   claims.CustomerID,
			CustomerName: claims.CustomerName,
			LastLogin:    lastLogin,
		},
		AccessToken:         claims.AccessToken,
		EndpointFingerprint: claims.EndpointFingerprint,
		ExpiresAt:           claims.ExpiresAt.Time.UTC(),
		Failure:             failure,
	}
	if claims.IssuedAt != nil {
		token.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return token, nil
}
