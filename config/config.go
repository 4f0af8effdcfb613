package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity-provider configuration
//   - database.go: Document-store and local-store configuration
//   - http.go: HTTP server configuration
//   - notifications.go: Local notification scheduling configuration
type AppConfig struct {
	// IsDev controls development mode behavior (devauth defaults, verbose logs).
	// Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Auth holds identity-provider configuration.
	Auth AuthConfig

	// Postgres backs the document store.
	Postgres DBConfig `envPrefix:"DB_"`

	// Redis backs the local key-value store (token/profile cache).
	Redis RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration.
	HTTP HTTPConfig

	// Notifications configuration.
	Notifications NotificationsConfig `envPrefix:"NOTIFY_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Notifications.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// APP_ENV is checked as a fallback for deployments that set it instead.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
