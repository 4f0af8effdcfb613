package oidc

// Package oidc implements the identity provider port against an
// OIDC/OAuth2 server using the resource-owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/campusgate/portal-api/internal/ports"
)

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu        sync.Mutex
	current   *session
	listeners map[int]func(ports.ProviderSession)
	nextID    int
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewProvider creates an OIDC provider. It performs a single discovery
// fetch to configure the token endpoint and ID-token verifier.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{
		httpClient: httpClient,
		listeners:  make(map[int]func(ports.ProviderSession)),
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	scope := config.Scope
	if scope == "" {
		scope = "openid email profile"
	}
	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       strings.Fields(scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

// SignIn performs the password grant and publishes the new session to
// state-change listeners. Provider rejections are classified into the
// sentinel errors from internal/ports.
func (p *Provider) SignIn(ctx context.Context, email, password string) (ports.ProviderSession, error) {
	if email == "" || password == "" {
		return nil, ports.ErrInvalidCredentials
	}
	if !strings.Contains(email, "@") {
		return nil, ports.ErrMalformedEmail
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	identity, err := p.extractIdentity(ctx, token, email)
	if err != nil {
		return nil, fmt.Errorf("extract identity: %w", err)
	}

	sess := &session{
		identity: identity,
		source:   p.config.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, p.httpClient), token),
	}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.broadcast(sess)

	return sess, nil
}

// SignOut drops the current session and notifies listeners with nil.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.broadcast(nil)
	return nil
}

// CurrentSession returns the active session, or nil when signed out.
func (p *Provider) CurrentSession() ports.ProviderSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current
}

// OnStateChange registers fn for session-state notifications and
// immediately delivers the current state asynchronously, so a late
// subscriber still observes an initial resolution. The returned function
// unregisters fn.
func (p *Provider) OnStateChange(fn func(ports.ProviderSession)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.current
	p.mu.Unlock()

	go func() {
		if current == nil {
			fn(nil)
			return
		}
		fn(current)
	}()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) broadcast(sess *session) {
	p.mu.Lock()
	fns := make([]func(ports.ProviderSession), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		if sess == nil {
			fn(nil)
		} else {
			fn(sess)
		}
	}
}

// extractIdentity maps token claims to a provider identity: the verified
// ID token when the openid scope granted one, the UserInfo endpoint for
// anything still missing.
func (p *Provider) extractIdentity(ctx context.Context, token *oauth2.Token, fallbackEmail string) (ports.ProviderIdentity, error) {
	identity := ports.ProviderIdentity{ExpiresAt: token.Expiry}
	if identity.ExpiresAt.IsZero() {
		identity.ExpiresAt = time.Now().Add(time.Hour)
	}

	if rawID, ok := token.Extra("id_token").(string); ok && rawID != "" {
		idTok, err := p.verifier.Verify(ctx, rawID)
		if err != nil {
			return ports.ProviderIdentity{}, fmt.Errorf("verify id_token: %w", err)
		}
		var claims idTokenClaims
		if claimsErr := idTok.Claims(&claims); claimsErr != nil {
			return ports.ProviderIdentity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
		}
		applyClaims(&identity, claims)
	}

	if identity.SubjectID == "" || identity.Email == "" {
		ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if err != nil {
			return ports.ProviderIdentity{}, fmt.Errorf("fetch user info: %w", err)
		}
		var claims idTokenClaims
		if claimsErr := ui.Claims(&claims); claimsErr != nil {
			return ports.ProviderIdentity{}, fmt.Errorf("decode user info: %w", claimsErr)
		}
		applyClaims(&identity, claims)
	}

	if identity.Email == "" {
		identity.Email = fallbackEmail
	}
	if identity.SubjectID == "" {
		return ports.ProviderIdentity{}, errors.New("token carries no subject")
	}
	return identity, nil
}

// idTokenClaims is the claim shape shared by ID tokens and UserInfo.
type idTokenClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

func applyClaims(identity *ports.ProviderIdentity, c idTokenClaims) {
	if identity.SubjectID == "" {
		identity.SubjectID = c.Sub
	}
	if identity.Email == "" {
		identity.Email = c.Email
	}
	if c.Exp > 0 {
		identity.ExpiresAt = time.Unix(c.Exp, 0)
	}
}

// classifyTokenError maps token-endpoint failures to the sentinel errors.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch {
		case retrieveErr.ErrorCode == "invalid_grant":
			return ports.ErrInvalidCredentials
		case retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests:
			return ports.ErrTooManyAttempts
		case retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusUnauthorized:
			return ports.ErrInvalidCredentials
		// A 400 token response the client could not parse still means the
		// grant was rejected.
		case retrieveErr.ErrorCode == "" && retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusBadRequest:
			return ports.ErrInvalidCredentials
		}
	}
	return fmt.Errorf("password grant: %w", err)
}

// session implements ports.ProviderSession on a refreshing token source.
type session struct {
	identity ports.ProviderIdentity
	source   oauth2.TokenSource
}

func (s *session) Identity() ports.ProviderIdentity { return s.identity }

// Token returns a fresh access token, refreshing through the token source
// when the cached one has expired.
func (s *session) Token(_ context.Context) (string, error) {
	tok, err := s.source.Token()
	if err != nil {
		return "", fmt.Errorf("token source: %w", err)
	}
	return tok.AccessToken, nil
}
