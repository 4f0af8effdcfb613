package devauth

// Package devauth provides a config-driven identity provider for local
// development. Accounts are "email:password" pairs; no network calls.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campusgate/portal-api/internal/ports"
)

// Config controls the dev provider.
type Config struct {
	// Accounts holds "email:password" pairs accepted at sign-in.
	Accounts []string
	// SessionDuration defaults to 8h when zero.
	SessionDuration time.Duration
}

// Provider implements ports.IdentityProvider against a static account
// list.
type Provider struct {
	accounts map[string]string
	duration time.Duration

	mu        sync.Mutex
	current   *session
	listeners map[int]func(ports.ProviderSession)
	nextID    int
}

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("dev auth: at least one account is required")
	}

	accounts := make(map[string]string, len(cfg.Accounts))
	for _, entry := range cfg.Accounts {
		email, password, ok := strings.Cut(entry, ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("dev auth: malformed account entry %q, want email:password", entry)
		}
		accounts[email] = password
	}

	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}

	return &Provider{
		accounts:  accounts,
		duration:  dur,
		listeners: make(map[int]func(ports.ProviderSession)),
	}, nil
}

// SignIn validates credentials against the configured accounts.
func (p *Provider) SignIn(_ context.Context, email, password string) (ports.ProviderSession, error) {
	if !strings.Contains(email, "@") {
		return nil, ports.ErrMalformedEmail
	}
	want, ok := p.accounts[email]
	if !ok || want != password {
		return nil, ports.ErrInvalidCredentials
	}

	token, err := randomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	sess := &session{
		identity: ports.ProviderIdentity{
			SubjectID: "dev-" + email,
			Email:     email,
			ExpiresAt: time.Now().Add(p.duration),
		},
		token: "dev-" + token,
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

// OnStateChange registers fn and asynchronously delivers the current
// state, matching the production provider's contract.
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

type session struct {
	identity ports.ProviderIdentity
	token    string
}

func (s *session) Identity() ports.ProviderIdentity { return s.identity }

func (s *session) Token(_ context.Context) (string, error) { return s.token, nil }

func randomString(n int) (string, error) {
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) > n {
		s = s[:n]
	}
	return s, nil
}
