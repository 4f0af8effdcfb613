package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portal-api/internal/ports"
)

const (
	testEmail    = "student@university.edu"
	testPassword = "passw0rd"
)

// newFakeIssuer stands up a minimal OIDC server: discovery, password-grant
// token endpoint, and userinfo.
func newFakeIssuer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/keys",
		})
	})

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") != "password" {
			writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
			return
		}
		switch {
		case r.PostForm.Get("username") == "locked@university.edu":
			writeJSON(t, w, http.StatusTooManyRequests, map[string]any{"error": "slow_down"})
		case r.PostForm.Get("username") == "legacy@university.edu":
			// A bare rejection with no error body, as older issuers send.
			http.Error(w, "Bad Request", http.StatusBadRequest)
		case r.PostForm.Get("username") == testEmail && r.PostForm.Get("password") == testPassword:
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token": "at-123",
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		default:
			writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		}
	})

	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"sub":   "subj-1",
			"email": testEmail,
		})
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeJSON sets Content-Type before the status line goes out, otherwise
// the header is dropped and the token client cannot parse the error body.
func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	srv := newFakeIssuer(t)
	p, err := NewProvider(ProviderConfig{
		ClientID:     "portal",
		ClientSecret: "secret",
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(ProviderConfig{DiscoveryURL: "http://example.test"})
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{ClientID: "portal"})
	assert.Error(t, err)
}

func TestSignIn_Success(t *testing.T) {
	p := newTestProvider(t)

	sess, err := p.SignIn(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	identity := sess.Identity()
	assert.Equal(t, "subj-1", identity.SubjectID)
	assert.Equal(t, testEmail, identity.Email)
	assert.True(t, identity.ExpiresAt.After(time.Now()))

	token, err := sess.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-123", token)

	require.NotNil(t, p.CurrentSession())
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), testEmail, "wrong")
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)
	assert.Nil(t, p.CurrentSession())
}

func TestSignIn_InvalidCredentials_NoErrorBody(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "legacy@university.edu", testPassword)
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)
}

func TestSignIn_TooManyAttempts(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "locked@university.edu", testPassword)
	assert.ErrorIs(t, err, ports.ErrTooManyAttempts)
}

func TestSignIn_MalformedEmail(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "not-an-email", testPassword)
	assert.ErrorIs(t, err, ports.ErrMalformedEmail)
}

func TestOnStateChange(t *testing.T) {
	p := newTestProvider(t)

	states := make(chan ports.ProviderSession, 4)
	unsubscribe := p.OnStateChange(func(s ports.ProviderSession) { states <- s })
	defer unsubscribe()

	// Initial state is delivered to a fresh subscriber.
	assert.Nil(t, <-states)

	_, err := p.SignIn(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	got := <-states
	require.NotNil(t, got)
	assert.Equal(t, "subj-1", got.Identity().SubjectID)

	require.NoError(t, p.SignOut(context.Background()))
	assert.Nil(t, <-states)
}

func TestOnStateChange_Unsubscribe(t *testing.T) {
	p := newTestProvider(t)

	states := make(chan ports.ProviderSession, 4)
	unsubscribe := p.OnStateChange(func(s ports.ProviderSession) { states <- s })
	<-states
	unsubscribe()

	_, err := p.SignIn(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	select {
	case s := <-states:
		t.Fatalf("unexpected notification after unsubscribe: %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}
