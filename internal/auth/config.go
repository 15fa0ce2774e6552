package auth

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/oszuidwest/zwfm-soundscape/internal/config"
)

// Config combines the login methods and session settings.
type Config struct {
	// Method is "local", "oidc" or "both".
	Method config.AuthMethod

	OIDC    OIDCConfig
	Local   LocalConfig
	Session SessionConfig

	// AllowedOrigins limits where an OIDC login may send the browser back to.
	AllowedOrigins string
}

// OIDCConfig defines the SSO provider.
type OIDCConfig struct {
	ProviderURL  string
	ClientID     string
	ClientSecret string //nolint:gosec // G117: intentional field for auth credentials
	RedirectURL  string
	Scopes       []string

	// Filled in by the service after discovery.
	Provider     *oidc.Provider
	OAuth2Config *oauth2.Config
}

// LocalConfig defines password rules for database-backed accounts.
type LocalConfig struct {
	Enabled           bool
	MinPasswordLength int
}

// SessionConfig defines how sessions are stored and which cookie carries them.
type SessionConfig struct {
	StoreType      config.SessionStoreType
	MaxAge         int // seconds
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite config.CookieSameSite
	SecretKey      string
}

// NewConfig derives the auth settings from the application configuration.
func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Method: cfg.Auth.Method,
		OIDC: OIDCConfig{
			ProviderURL:  cfg.Auth.OIDCProviderURL,
			ClientID:     cfg.Auth.OIDCClientID,
			ClientSecret: cfg.Auth.OIDCClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		Local: LocalConfig{
			Enabled:           cfg.Auth.Method.SupportsLocal(),
			MinPasswordLength: 8,
		},
		Session: SessionConfig{
			StoreType:      cfg.Auth.SessionStore,
			MaxAge:         86400 * 7,
			CookieName:     "soundscape_session",
			CookiePath:     "/",
			CookieDomain:   cfg.Auth.CookieDomain,
			CookieSecure:   cfg.Environment.IsProduction(),
			CookieHTTPOnly: true,
			CookieSameSite: cfg.Auth.CookieSameSite,
			SecretKey:      cfg.Auth.SessionSecret,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
}
