// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Audio    AudioConfig
	Mixer    MixerConfig
	// LogLevel is "info" or "debug"
	LogLevel    string
	Environment Environment
}

// ServerConfig holds HTTP server and CORS configuration.
type ServerConfig struct {
	Address string
	// AllowedOrigins is a comma-separated list of allowed origins for CORS
	AllowedOrigins string
}

// DatabaseConfig holds MySQL database connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Migrate runs the embedded migrations on startup.
	Migrate bool
}

// AuthConfig holds authentication and session configuration.
type AuthConfig struct {
	// Method specifies authentication type: "local", "oidc", or "both"
	Method AuthMethod

	// SessionSecret must be changed from default in production
	SessionSecret string
	SessionStore  SessionStoreType

	// Cookie configuration
	CookieDomain   string
	CookieSameSite CookieSameSite

	// OIDC configuration
	OIDCProviderURL  string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	// FrontendURL receives the browser after an OIDC login.
	FrontendURL string

	// Bootstrap admin, created when no users exist
	AdminUsername string
	AdminPassword string
}

// AudioConfig holds audio processing, playback and file storage configuration.
type AudioConfig struct {
	FFmpegPath  string
	FFprobePath string
	// SoundsPath holds the built-in loop files.
	SoundsPath string
	// UploadPath holds processed custom sounds.
	UploadPath string
	TempPath   string
	SampleRate int
	Output     AudioOutput
	// MaxUploadSize is the upload limit in bytes.
	MaxUploadSize int64
}

// MixerConfig holds slot mixer tuning.
type MixerConfig struct {
	// StatePath is the directory of the durable local store.
	StatePath       string
	FlushInterval   time.Duration
	ResetDuration   time.Duration
	ResetSteps      int
	PreviewDuration time.Duration
	// Autoplay starts with audio unlocked.
	Autoplay     bool
	PCMCacheSize int
}

// Load reads configuration from environment variables and creates required directories.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:        getEnv("SOUNDSCAPE_SERVER_ADDRESS", ":8080"),
			AllowedOrigins: getEnv("SOUNDSCAPE_ALLOWED_ORIGINS", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("SOUNDSCAPE_DB_HOST", "localhost"),
			Port:     getEnvInt("SOUNDSCAPE_DB_PORT", 3306),
			User:     getEnv("SOUNDSCAPE_DB_USER", "soundscape"),
			Password: getEnv("SOUNDSCAPE_DB_PASSWORD", "soundscape"),
			Database: getEnv("SOUNDSCAPE_DB_NAME", "soundscape"),
			Migrate:  getEnvBool("SOUNDSCAPE_DB_MIGRATE", true),
		},
		Auth: AuthConfig{
			Method:           AuthMethod(getEnv("SOUNDSCAPE_AUTH_METHOD", "local")),
			SessionSecret:    getEnv("SOUNDSCAPE_SESSION_SECRET", "your-secret-key-change-in-production"),
			SessionStore:     SessionStoreType(getEnv("SOUNDSCAPE_SESSION_STORE", "cookie")),
			CookieDomain:     getEnv("SOUNDSCAPE_COOKIE_DOMAIN", ""),
			CookieSameSite:   CookieSameSite(getEnv("SOUNDSCAPE_COOKIE_SAMESITE", "lax")),
			OIDCProviderURL:  getEnv("SOUNDSCAPE_OIDC_PROVIDER_URL", ""),
			OIDCClientID:     getEnv("SOUNDSCAPE_OIDC_CLIENT_ID", ""),
			OIDCClientSecret: getEnv("SOUNDSCAPE_OIDC_CLIENT_SECRET", ""),
			OIDCRedirectURL:  getEnv("SOUNDSCAPE_OIDC_REDIRECT_URL", "http://localhost:8080/api/v1/session/oauth/callback"),
			FrontendURL:      getEnv("SOUNDSCAPE_FRONTEND_URL", ""),
			AdminUsername:    getEnv("SOUNDSCAPE_ADMIN_USERNAME", "admin"),
			AdminPassword:    getEnv("SOUNDSCAPE_ADMIN_PASSWORD", ""),
		},
		Audio: AudioConfig{
			FFmpegPath:    getEnv("SOUNDSCAPE_FFMPEG_PATH", "ffmpeg"),
			FFprobePath:   getEnv("SOUNDSCAPE_FFPROBE_PATH", "ffprobe"),
			SoundsPath:    getEnv("SOUNDSCAPE_SOUNDS_PATH", "./sounds"),
			UploadPath:    getEnv("SOUNDSCAPE_UPLOAD_PATH", "./audio/uploads"),
			TempPath:      getEnv("SOUNDSCAPE_TEMP_PATH", "./audio/temp"),
			SampleRate:    getEnvInt("SOUNDSCAPE_SAMPLE_RATE", 48000),
			Output:        AudioOutput(getEnv("SOUNDSCAPE_AUDIO_OUTPUT", "device")),
			MaxUploadSize: int64(getEnvInt("SOUNDSCAPE_MAX_UPLOAD_MB", 50)) << 20,
		},
		Mixer: MixerConfig{
			StatePath:       getEnv("SOUNDSCAPE_STATE_PATH", "./state"),
			FlushInterval:   getEnvDuration("SOUNDSCAPE_FLUSH_INTERVAL", time.Second),
			ResetDuration:   getEnvDuration("SOUNDSCAPE_RESET_DURATION", 800*time.Millisecond),
			ResetSteps:      getEnvInt("SOUNDSCAPE_RESET_STEPS", 20),
			PreviewDuration: getEnvDuration("SOUNDSCAPE_PREVIEW_DURATION", 10*time.Second),
			Autoplay:        getEnvBool("SOUNDSCAPE_AUTOPLAY", false),
			PCMCacheSize:    getEnvInt("SOUNDSCAPE_PCM_CACHE_SIZE", 12),
		},
		LogLevel:    getEnv("SOUNDSCAPE_LOG_LEVEL", "info"),
		Environment: Environment(getEnv("SOUNDSCAPE_ENV", "development")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create directories if they don't exist
	dirs := []string{
		cfg.Audio.UploadPath,
		cfg.Audio.TempPath,
		cfg.Mixer.StatePath,
	}

	for _, dir := range dirs {
		// #nosec G301 - 0755 is appropriate for audio directories that need to be readable by web server
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// Validate checks enum values and numeric ranges.
func (c *Config) Validate() error {
	switch {
	case !c.Auth.Method.IsValid():
		return fmt.Errorf("invalid SOUNDSCAPE_AUTH_METHOD %q", c.Auth.Method)
	case !c.Auth.SessionStore.IsValid():
		return fmt.Errorf("invalid SOUNDSCAPE_SESSION_STORE %q", c.Auth.SessionStore)
	case !c.Auth.CookieSameSite.IsValid():
		return fmt.Errorf("invalid SOUNDSCAPE_COOKIE_SAMESITE %q", c.Auth.CookieSameSite)
	case !c.Audio.Output.IsValid():
		return fmt.Errorf("invalid SOUNDSCAPE_AUDIO_OUTPUT %q", c.Audio.Output)
	case !c.Environment.IsValid():
		return fmt.Errorf("invalid SOUNDSCAPE_ENV %q", c.Environment)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("SOUNDSCAPE_SAMPLE_RATE must be positive")
	case c.Mixer.ResetSteps <= 0:
		return fmt.Errorf("SOUNDSCAPE_RESET_STEPS must be positive")
	case c.Mixer.FlushInterval <= 0:
		return fmt.Errorf("SOUNDSCAPE_FLUSH_INTERVAL must be positive")
	case c.Auth.Method.SupportsOIDC() && c.Auth.OIDCProviderURL == "":
		return fmt.Errorf("SOUNDSCAPE_OIDC_PROVIDER_URL is required for auth method %q", c.Auth.Method)
	case c.Auth.Method.SupportsOIDC() && c.Auth.FrontendURL == "":
		return fmt.Errorf("SOUNDSCAPE_FRONTEND_URL is required for auth method %q", c.Auth.Method)
	case c.Environment.IsProduction() && c.Auth.SessionSecret == "your-secret-key-change-in-production":
		return fmt.Errorf("SOUNDSCAPE_SESSION_SECRET must be changed in production")
	}
	return nil
}

// getEnv returns the value of the environment variable key, or defaultValue if unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
