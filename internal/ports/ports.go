package ports

// Package ports defines interfaces (hexagonal ports) for the portal's external
// collaborators: the identity provider, the remote document store, the local
// key-value store, and the notification service. Implementations live in
// internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"
)

// Sign-in failures the identity provider is expected to distinguish.
// Adapters map provider-specific failures onto these sentinels; the login
// service turns them into user-facing messages.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedEmail     = errors.New("malformed email")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// ProviderIdentity is the authenticated principal as reported by the
// identity provider.
type ProviderIdentity struct {
	SubjectID string // stable identifier (e.g., sub)
	Email     string
	ExpiresAt time.Time // absolute expiry of the provider session
}

// ProviderSession represents a live session with the identity provider.
// Token fetches the current identity token; providers may refresh it.
type ProviderSession interface {
	Identity() ProviderIdentity
	Token(ctx context.Context) (string, error)
}

// IdentityProvider authenticates students and reports session-state changes.
type IdentityProvider interface {
	// SignIn authenticates with email+password. Failures are classified with
	// the sentinel errors above where the provider allows it.
	SignIn(ctx context.Context, email, password string) (ProviderSession, error)

	// SignOut terminates the current session. Implementations must emit a
	// signed-out state change even when the remote call fails.
	SignOut(ctx context.Context) error

	// CurrentSession returns the live session, or nil when signed out.
	CurrentSession() ProviderSession

	// OnStateChange registers fn to be invoked with the new session (nil for
	// signed out) on every state transition, including the initial state.
	// The returned function unregisters fn.
	OnStateChange(fn func(ProviderSession)) (unsubscribe func())
}

// Document is a schemaless record from the document store.
type Document map[string]any

// DocumentStore reads and watches remote collections.
type DocumentStore interface {
	// GetDocument returns the document at collection/key, or nil (no error)
	// when absent.
	GetDocument(ctx context.Context, collection, key string) (Document, error)

	// QueryByField returns all documents in collection whose top-level field
	// equals value.
	QueryByField(ctx context.Context, collection, field, value string) ([]Document, error)

	// Subscribe invokes onChange with the collection and key of every changed
	// document until the returned unsubscribe function is called or ctx ends.
	Subscribe(ctx context.Context, collection string, onChange func(collection, key string)) (unsubscribe func(), err error)
}

// LocalStore is the persistent key-value cache (token, subject, profile).
// Absence is not an error; storage failures are best-effort for callers.
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Notification is a local notification payload.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier schedules local notifications. Fire-and-forget from the core's
// perspective; failures are logged, never fatal.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	ScheduleNow(ctx context.Context, n Notification) (id string, err error)
	ScheduleAfter(ctx context.Context, delay time.Duration, n Notification) (id string, err error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}
