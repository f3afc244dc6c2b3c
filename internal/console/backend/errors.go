package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials covers rejected logins. User-correctable,
	// surfaced on the form, never retried automatically.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrBackendUnreachable covers infrastructure failures while talking to
	// the VoltGrid API: network errors, or a profile fetch failing after the
	// login itself succeeded.
	ErrBackendUnreachable = errors.New("backend_unreachable")
)

// APIError is a non-2xx response from the VoltGrid API with whatever detail
// the backend included. Kept for logs; callers branch on the sentinels above.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// parseAPIError extracts a human-readable detail from an error body. The
// backend answers {"detail": "..."}; older deployments used "message" or
// "error", so those are tried before falling back to the status text.
func parseAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, detail := range []string{payload.Detail, payload.Message, payload.Error} {
			if detail != "" {
				return &APIError{StatusCode: statusCode, Detail: detail}
			}
		}
	}
	return &APIError{StatusCode: statusCode, Detail: http.StatusText(statusCode)}
}
