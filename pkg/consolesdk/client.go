package consolesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Sticky failure tags surfaced in Session.Error. Once present they persist
// across polls until a fresh login replaces the session.
const (
	ErrorCodeRefreshFailed   = "RefreshAccessTokenError"
	ErrorCodeEndpointChanged = "BackendUrlChanged"
)

// Session is the materialized session returned by GET /v1/session.
type Session struct {
	// Authenticated is false for anonymous visitors and for cookies the
	// console rejected; all identity fields are empty in that case.
	Authenticated bool `json:"authenticated"`

	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	Role         string    `json:"role,omitempty"`
	CustomerID   string    `json:"customer_id,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	LastLogin    time.Time `json:"last_login,omitzero"`

	// AccessToken is the backend bearer token for outbound resource calls.
	AccessToken string `json:"access_token,omitempty"`
	// ExpiresAt is the absolute expiry of the session token.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	// Error is the sticky failure tag, or empty.
	Error string `json:"error,omitempty"`
	// Refreshing reports that the console is refreshing the backend access
	// token for this session right now.
	Refreshing bool `json:"refreshing"`
}

// Failed reports whether the session carries a sticky failure tag.
func (s Session) Failed() bool {
	return s.Error != ""
}

// Account is the authenticated caller's identity from GET /v1/account.
type Account struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// Health is the liveness probe response.
type Health struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// APIError is a console error response decoded into a typed error.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g. "invalid_credentials").
	Code string `json:"error"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// LoginURL is set on "unauthenticated" responses from protected routes;
	// it carries the login view plus a callbackUrl query parameter.
	LoginURL string `json:"login_url,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client is a client for the VoltGrid console session API. It owns a cookie
// jar, so one Client behaves like one browser session: Login stores the
// session cookie and every later call presents it. Safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a console client with its own cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil) // cannot fail with nil options
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password. On success the console sets
// the session cookie on the client's jar; there is no response body.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", bytes.NewReader(payload), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}

// Logout destroys the session. The console expires the cookie; local state
// is gone even before any backend acknowledgement.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}

// GetSession fetches the current materialized session. Anonymous visitors
// get Authenticated=false rather than an error.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/session", nil, nil)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := decodeJSON(resp, &sess, http.StatusOK); err != nil {
		return nil, err
	}

	return &sess, nil
}

// GetAccount fetches the authenticated caller's identity. Returns an
// *APIError with code "unauthenticated" when there is no usable session.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/account", nil, nil)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := decodeJSON(resp, &account, http.StatusOK); err != nil {
		return nil, err
	}

	return &account, nil
}

// GetLiveness checks if the console is alive.
func (c *Client) GetLiveness(ctx context.Context) (*Health, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var health Health
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}

	return &health, nil
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request with the client's HTTP client.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// decodeJSON decodes a JSON response into target, converting non-expected
// statuses into a typed *APIError.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseAPIError(resp, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// checkStatusNoContent returns a typed error if the response status is not
// 204 No Content.
func checkStatusNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp, body)
	}

	return nil
}

// parseAPIError turns an error response into an *APIError, falling back to
// the HTTP status when the body is not the console's error shape.
func parseAPIError(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err == nil && apiErr.Code != "" {
		return apiErr
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       "server_error",
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
