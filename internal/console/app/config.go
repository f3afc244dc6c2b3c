package app

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds console configuration loaded from the environment and an
// optional .env file.
type Config struct {
	// Addr is the address the HTTP server listens on (default: :8080).
	Addr string `mapstructure:"CONSOLE_ADDR"`

	// BackendBaseURL is the VoltGrid REST API base URL. Required.
	BackendBaseURL string `mapstructure:"BACKEND_BASE_URL"`
	// BackendAPIVersion is the versioned path segment appended to the base
	// URL (default: v1).
	BackendAPIVersion string `mapstructure:"BACKEND_API_VERSION"`
	// BackendClientID is the OAuth client id sent with password-grant logins.
	BackendClientID string `mapstructure:"BACKEND_CLIENT_ID"`
	// BackendClientSecret is the OAuth client secret sent with password-grant
	// logins.
	BackendClientSecret string `mapstructure:"BACKEND_CLIENT_SECRET"`
	// BackendScope is the space-separated scope string requested at login.
	BackendScope string `mapstructure:"BACKEND_SCOPE"`
	// BackendTimeout bounds every backend round-trip (default: 10s).
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`

	// SessionSecret seeds the HKDF derivation of the session signing key.
	// Required, at least 16 bytes.
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	// SessionLifetimeMinutes is how long an issued or refreshed session
	// token lives (default: 30).
	SessionLifetimeMinutes int `mapstructure:"SESSION_LIFETIME_MINUTES"`
	// SessionRefreshLeadMinutes is how long before expiry a proactive
	// refresh is attempted (default: 5).
	SessionRefreshLeadMinutes int `mapstructure:"SESSION_REFRESH_LEAD_MINUTES"`

	// CookieName is the session cookie name (default: voltgrid_session).
	CookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// CookieSecure marks the session cookie Secure. Must be true when
	// ENV=prod.
	CookieSecure bool `mapstructure:"SESSION_COOKIE_SECURE"`
	// CookieMaxAge is the cookie lifetime. Kept longer than the token
	// lifetime so expired and failed sessions stay observable client-side
	// (default: 168h).
	CookieMaxAge time.Duration `mapstructure:"SESSION_COOKIE_MAX_AGE"`

	// Env is the application environment (dev, staging, prod) (default: dev).
	Env string `mapstructure:"ENV"`
	// LogLevel is the minimum log level (debug, info, warn, error)
	// (default: info).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat selects the log handler (json, text) (default: json).
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// ShutdownGracePeriod is the graceful shutdown timeout (default: 10s).
	ShutdownGracePeriod time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
}

// LoadConfig reads .env (if present), then builds and validates Config from
// the environment. Env vars override .env values; a missing .env is ignored.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Defaults double as key registrations: AutomaticEnv only surfaces keys
	// viper already knows about when unmarshalling.
	v.SetDefault("CONSOLE_ADDR", ":8080")
	v.SetDefault("BACKEND_BASE_URL", "")
	v.SetDefault("BACKEND_API_VERSION", "v1")
	v.SetDefault("BACKEND_CLIENT_ID", "console")
	v.SetDefault("BACKEND_CLIENT_SECRET", "")
	v.SetDefault("BACKEND_SCOPE", "")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_LIFETIME_MINUTES", 30)
	v.SetDefault("SESSION_REFRESH_LEAD_MINUTES", 5)
	v.SetDefault("SESSION_COOKIE_NAME", "voltgrid_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_MAX_AGE", "168h") // 7 days
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: CONSOLE_ADDR must be set")
	}
	if c.BackendBaseURL == "" {
		return errors.New("config: BACKEND_BASE_URL must be set")
	}
	if c.BackendTimeout <= 0 {
		return errors.New("config: BACKEND_TIMEOUT must be positive")
	}
	if c.SessionSecret == "" {
		return errors.New("config: SESSION_SECRET must be set")
	}
	if c.SessionLifetimeMinutes < 1 {
		return errors.New("config: SESSION_LIFETIME_MINUTES must be at least 1")
	}
	if c.SessionRefreshLeadMinutes < 1 {
		return errors.New("config: SESSION_REFRESH_LEAD_MINUTES must be at least 1")
	}
	if c.SessionRefreshLeadMinutes >= c.SessionLifetimeMinutes {
		return errors.New("config: SESSION_REFRESH_LEAD_MINUTES must be less than SESSION_LIFETIME_MINUTES")
	}
	if c.CookieName == "" {
		return errors.New("config: SESSION_COOKIE_NAME must be set")
	}
	if c.CookieMaxAge <= 0 {
		return errors.New("config: SESSION_COOKIE_MAX_AGE must be positive")
	}
	if c.Env == "prod" && !c.CookieSecure {
		return errors.New("config: SESSION_COOKIE_SECURE must be true when ENV=prod")
	}
	if c.ShutdownGracePeriod <= 0 {
		return errors.New("config: SHUTDOWN_GRACE_PERIOD must be positive")
	}
	return nil
}

// SessionLifetime returns the configured token lifetime.
func (c Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionLifetimeMinutes) * time.Minute
}

// SessionRefreshLead returns the configured refresh lead margin.
func (c Config) SessionRefreshLead() time.Duration {
	return time.Duration(c.SessionRefreshLeadMinutes) * time.Minute
}
