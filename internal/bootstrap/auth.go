package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/campusgate/portal-api/config"
	"github.com/campusgate/portal-api/internal/adapters/devauth"
	"github.com/campusgate/portal-api/internal/adapters/oidc"
	"github.com/campusgate/portal-api/internal/ports"
)

// BuildIdentityProvider selects and constructs the identity provider from
// configuration. Mock mode is rejected outside development.
//
//nolint:ireturn // the caller programs against the port, not a concrete provider.
func BuildIdentityProvider(cfg *config.AppConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeOIDC:
		provider, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			Scope:        cfg.Auth.OIDC.Scope,
			DiscoveryURL: cfg.Auth.OIDC.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("configure oidc provider: %w", err)
		}
		return provider, nil

	case config.AuthModeMock:
		if !cfg.IsDev {
			return nil, fmt.Errorf("auth mode %q is only allowed in development", cfg.Auth.Mode)
		}
		if logger != nil {
			logger.Warn("using mock identity provider", "accounts", len(cfg.Auth.DevAuth.Accounts))
		}
		provider, err := devauth.NewProvider(devauth.Config{Accounts: cfg.Auth.DevAuth.Accounts})
		if err != nil {
			return nil, fmt.Errorf("configure dev auth provider: %w", err)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
