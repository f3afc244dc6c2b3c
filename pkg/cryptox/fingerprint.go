package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
)

// EndpointFingerprint returns a deterministic fingerprint of the backend
// endpoint configuration (base URL plus API version segment). Session tokens
// record the fingerprint they were issued under; a mismatch on a later
// request means the console was repointed at a different backend and the
// token's embedded access token can no longer be trusted.
//
// The fingerprint is a base64url-encoded SHA-256 digest (43 chars).
func EndpointFingerprint(baseURL, apiVersion string) string {
	sum := sha256.Sum256([]byte(normalizeEndpoint(baseURL, apiVersion)))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// normalizeEndpoint canonicalizes the endpoint so cosmetic differences
// (trailing slashes, host casing) do not read as a backend migration.
func normalizeEndpoint(baseURL, apiVersion string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	version := strings.Trim(strings.TrimSpace(apiVersion), "/")

	if u, err := url.Parse(base); err == nil && u.Host != "" {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		base = strings.TrimRight(u.String(), "/")
	}

	if version == "" {
		return base
	}
	return base + "/" + version
}
