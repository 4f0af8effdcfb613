package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity-provider mode for the application.
type AuthMode string

const (
	// AuthModeOIDC uses an OIDC provider with the resource-owner password grant.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses the in-process dev identity provider (development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC identity-provider configuration.
// The portal signs students in directly with email+password, so the
// provider must allow the resource-owner password credentials grant.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"portal"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the mock identity provider.
// Accounts is a ;-separated list of email:password pairs.
type DevAuthConfig struct {
	Accounts []string `env:"ACCOUNTS" envDefault:"dev@example.com:dev" envSeparator:";"`
}

// AuthConfig groups all identity-provider configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
