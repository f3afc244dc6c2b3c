// Package backend is the console's client for the remote VoltGrid REST API.
// It covers exactly the three calls the session core depends on: password
// login, profile fetch, and access-token refresh. All resource CRUD goes
// through other layers; nothing here retains state between calls.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/voltgrid/console/internal/console/domain"
)

// DefaultTimeout bounds every backend round-trip so an evaluation can never
// suspend indefinitely on a stalled refresh.
const DefaultTimeout = 10 * time.Second

var validate = validator.New()

// credentials is validated for shape only before any network call. Policy
// (lockouts, password rules beyond length) stays on the backend.
type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Config identifies the VoltGrid deployment this console talks to.
type Config struct {
	BaseURL      string
	APIVersion   string // versioned path segment, e.g. "v1"
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration // zero means DefaultTimeout
}

// Client calls the VoltGrid API. Safe for concurrent use.
type Client struct {
	base       string
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New builds a client for the configured deployment.
func New(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if v := strings.Trim(cfg.APIVersion, "/"); v != "" {
		base += "/" + v
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var scopes []string
	if cfg.Scope != "" {
		scopes = strings.Fields(cfg.Scope)
	}

	return &Client{
		base: base,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL: base + "/auth/login",
				// The login endpoint reads client_id/client_secret from the
				// form body, not from basic auth.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the versioned base the client resolved at construction.
func (c *Client) BaseURL() string {
	return c.base
}

type profileResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	CustomerID string `json:"customer_id"`
	Customer   *struct {
		Name string `json:"name"`
	} `json:"customer"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	LastLogin time.Time `json:"last_login"`
}

// Authenticate exchanges a credential pair for a normalized identity plus
// the backend access token. Two calls: password-grant login, then a profile
// fetch with the fresh token. A rejected login is ErrInvalidCredentials; a
// failure after the token was issued is ErrBackendUnreachable.
func (c *Client) Authenticate(ctx context.Context, email, password string) (domain.Identity, string, error) {
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return domain.Identity{}, "", fmt.Errorf("%w: credential shape rejected", ErrInvalidCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return domain.Identity{}, "", fmt.Errorf("%w: login rejected with status %d",
				ErrInvalidCredentials, retrieveErr.Response.StatusCode)
		}
		return domain.Identity{}, "", fmt.Errorf("%w: login call failed: %v", ErrBackendUnreachable, err)
	}

	identity, err := c.profile(ctx, tok.AccessToken)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("%w: profile fetch failed: %v", ErrBackendUnreachable, err)
	}

	return identity, tok.AccessToken, nil
}

// profile fetches the authenticated caller's own record.
func (c *Client) profile(ctx context.Context, accessToken string) (domain.Identity, error) {
	var profile profileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", accessToken, &profile); err != nil {
		return domain.Identity{}, err
	}

	identity := domain.Identity{
		UserID:      profile.ID,
		Email:       profile.Email,
		DisplayName: strings.TrimSpace(profile.FirstName + " " + profile.LastName),
		Role:        domain.Role(profile.Role),
		CustomerID:  profile.CustomerID,
		LastLogin:   profile.LastLogin,
	}
	if profile.Customer != nil {
		identity.CustomerName = profile.Customer.Name
	}
	return identity, nil
}

// Refresh trades the current access token for a new one. Any failure is
// returned as-is; the lifecycle layer owns turning it into a sticky state.
func (c *Client) Refresh(ctx context.Context, accessToken string) (string, error) {
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh-token", accessToken, &payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", errors.New("refresh response missing access_token")
	}
	return payload.AccessToken, nil
}

// doJSON performs a bearer-authorized call and decodes a 2xx JSON body into
// target. Non-2xx responses come back as *APIError.
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
