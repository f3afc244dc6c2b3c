// Package cryptox holds the small crypto helpers the console needs: deriving
// the session signing key from the configured secret, and fingerprinting the
// backend endpoint configuration.
package cryptox

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SigningKeySize is the size of the derived HMAC-SHA256 session key.
const SigningKeySize = 32

// signingKeyInfo domain-separates the session key from any other key that
// might ever be derived from the same secret.
const signingKeyInfo = "voltgrid console session signing key"

// ErrSecretTooShort reports a configured session secret below the minimum
// usable length.
var ErrSecretTooShort = errors.New("cryptox: session secret must be at least 16 bytes")

// DeriveSigningKey expands the configured session secret into the HMAC key
// that signs session tokens, via HKDF-SHA256. The raw secret itself never
// signs anything, so rotating the derivation info invalidates all sessions
// without exposing the secret to the token layer.
func DeriveSigningKey(secret string) ([]byte, error) {
	if len(secret) < 16 {
		return nil, ErrSecretTooShort
	}

	key := make([]byte, SigningKeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
