package service

// Package service orchestrates the portal core: the session manager, the
// interactive login flow, and notification scheduling. Services depend on
// the ports in internal/ports, never on concrete adapters.

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/domain/student"
	"github.com/campusgate/portal-api/internal/ports"
)

// Local-store keys for the cached session.
const (
	keyToken   = "token"
	keySubject = "subject"
	keyProfile = "profile"
)

// Collections read by the session manager.
const (
	collectionStudents      = "students"
	collectionStudentEmails = "studentEmails"
)

// Snapshot is the read-only view of the authenticated-user state.
// Loading is true from construction until the identity provider's first
// state resolution, success or failure.
type Snapshot struct {
	Profile   *student.Profile
	SubjectID string
	Loading   bool
}

// SignedIn reports whether the snapshot holds an authenticated profile.
func (s Snapshot) SignedIn() bool { return s.Profile != nil }

// stateChange is one delivered provider notification, stamped with a
// sequence number so stale resolutions can be discarded.
type stateChange struct {
	seq  uint64
	sess ports.ProviderSession
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Provider  ports.IdentityProvider
	Documents ports.DocumentStore
	Store     ports.LocalStore
	Logger    *slog.Logger
}

// SessionManager owns the authenticated-user lifecycle. It bridges the
// identity provider's session state to a locally cached profile record,
// persists the access token, and exposes the current snapshot plus a
// subscribe/notify mechanism to every consumer.
//
// Provider notifications are funneled through a single-slot mailbox drained
// by one goroutine, so resolutions are serialized and the last delivered
// notification always wins, never the last one to finish its storage
// writes. The warm-start cache read is provisional and is superseded by the
// first authoritative resolution regardless of its content.
type SessionManager struct {
	provider ports.IdentityProvider
	docs     ports.DocumentStore
	store    ports.LocalStore
	logger   *slog.Logger

	mu            sync.Mutex
	snap          Snapshot
	authoritative bool
	subscribers   map[int]func(Snapshot)
	nextSubID     int

	pendingMu sync.Mutex
	pending   *stateChange
	seq       uint64

	notify      chan struct{}
	done        chan struct{}
	unsubscribe func()
	started     bool
	closeOnce   sync.Once
}

// NewSessionManager constructs a SessionManager. The snapshot starts empty
// with Loading=true; call Start to begin resolving.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		provider:    opts.Provider,
		docs:        opts.Documents,
		store:       opts.Store,
		logger:      logger,
		snap:        Snapshot{Loading: true},
		subscribers: make(map[int]func(Snapshot)),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Start subscribes to the identity provider's state changes and kicks the
// one-time warm start. It runs once per manager; a second call is an error.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("session manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.unsubscribe = m.provider.OnStateChange(func(sess ports.ProviderSession) {
		m.deliver(sess)
	})

	go m.drain(ctx)
	go m.warmStart(ctx)
	return nil
}

// Close tears down the provider subscription and stops the drain goroutine
// so no resolution is delivered into a dead consumer.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		close(m.done)
	})
}

// Snapshot returns a copy of the current session state. Never blocks.
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn to receive every published snapshot. The returned
// function unregisters it.
func (m *SessionManager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// UpdateProfile optimistically sets the profile after an interactive login,
// persists it, and opportunistically refreshes the token when a provider
// session exists. Token-refresh failures are logged, never fatal: profile
// caching still succeeds.
func (m *SessionManager) UpdateProfile(ctx context.Context, profile *student.Profile, subjectID string) error {
	if profile == nil {
		return apperrors.Validation("profile is required")
	}

	m.mu.Lock()
	m.snap.Profile = profile
	m.snap.SubjectID = subjectID
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)

	if data, err := profile.JSON(); err != nil {
		m.logger.ErrorContext(ctx, "encode profile for cache", "error", err)
	} else if err := m.store.Set(ctx, keyProfile, string(data)); err != nil {
		m.logger.ErrorContext(ctx, "cache profile", "error", err)
	}

	if sess := m.provider.CurrentSession(); sess != nil {
		token, err := sess.Token(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "opportunistic token refresh failed", "error", err)
			return nil
		}
		if err := m.store.Set(ctx, keyToken, token); err != nil {
			m.logger.ErrorContext(ctx, "cache token", "error", err)
		}
		if err := m.store.Set(ctx, keySubject, sess.Identity().SubjectID); err != nil {
			m.logger.ErrorContext(ctx, "cache subject", "error", err)
		}
	}
	return nil
}

// Logout signs out of the identity provider and unconditionally clears the
// cached token, subject, and profile. The provider error, if any, is
// returned after local state has been cleared, so the snapshot never keeps
// a profile past a logout.
func (m *SessionManager) Logout(ctx context.Context) error {
	signOutErr := m.provider.SignOut(ctx)

	m.clearCache(ctx)

	m.mu.Lock()
	m.snap = Snapshot{Loading: false}
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)

	if signOutErr != nil {
		return apperrors.Wrap(signOutErr, apperrors.ErrCodeAuth, "provider sign-out failed")
	}
	return nil
}

// deliver stores the newest notification in the single-slot mailbox and
// wakes the drain goroutine. An undrained older notification is simply
// replaced.
func (m *SessionManager) deliver(sess ports.ProviderSession) {
	m.pendingMu.Lock()
	m.seq++
	m.pending = &stateChange{seq: m.seq, sess: sess}
	m.pendingMu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain processes mailbox notifications one at a time until Close or ctx.
func (m *SessionManager) drain(ctx context.Context) {
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-m.notify:
			m.pendingMu.Lock()
			sc := m.pending
			m.pending = nil
			m.pendingMu.Unlock()
			if sc != nil {
				m.resolve(ctx, *sc)
			}
		}
	}
}

// resolve turns one provider notification into an authoritative snapshot.
// Every failure path degrades to signed-out: there is no caller to surface
// an error to from a background stream.
func (m *SessionManager) resolve(ctx context.Context, sc stateChange) {
	if sc.sess == nil {
		m.clearCache(ctx)
		m.publishAuthoritative(sc.seq, Snapshot{Loading: false})
		return
	}

	identity := sc.sess.Identity()

	token, err := sc.sess.Token(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "fetch token failed, treating as signed out", "error", err)
		m.clearCache(ctx)
		m.publishAuthoritative(sc.seq, Snapshot{Loading: false})
		return
	}
	if err := m.store.Set(ctx, keyToken, token); err != nil {
		m.logger.ErrorContext(ctx, "cache token", "error", err)
	}
	if err := m.store.Set(ctx, keySubject, identity.SubjectID); err != nil {
		m.logger.ErrorContext(ctx, "cache subject", "error", err)
	}

	profile, err := m.lookupProfile(ctx, identity)
	if err != nil {
		m.logger.WarnContext(ctx, "profile lookup failed, treating as signed out",
			"subject", identity.SubjectID, "error", err)
		m.clearCache(ctx)
		m.publishAuthoritative(sc.seq, Snapshot{Loading: false})
		return
	}

	if data, jsonErr := profile.JSON(); jsonErr != nil {
		m.logger.ErrorContext(ctx, "encode profile for cache", "error", jsonErr)
	} else if setErr := m.store.Set(ctx, keyProfile, string(data)); setErr != nil {
		m.logger.ErrorContext(ctx, "cache profile", "error", setErr)
	}

	m.publishAuthoritative(sc.seq, Snapshot{
		Profile:   profile,
		SubjectID: identity.SubjectID,
		Loading:   false,
	})
}

// lookupProfile finds the student document for a provider identity: the
// studentEmails mapping first, then a field query on the students
// collection. Absence is an error here; a signed-in identity without a
// profile is treated as signed out by the caller.
func (m *SessionManager) lookupProfile(ctx context.Context, identity ports.ProviderIdentity) (*student.Profile, error) {
	studentID, err := m.resolveStudentID(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	doc, err := m.docs.GetDocument(ctx, collectionStudents, studentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NotFoundf("student %q not found", studentID)
	}

	doc["uid"] = identity.SubjectID
	if identity.Email != "" {
		doc["email"] = identity.Email
	}
	return student.FromDocument(doc)
}

// resolveStudentID maps a sign-in email to a student id.
func (m *SessionManager) resolveStudentID(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", apperrors.NotFound("identity has no email")
	}

	mapping, err := m.docs.GetDocument(ctx, collectionStudentEmails, email)
	if err != nil {
		return "", err
	}
	if mapping != nil {
		if id, ok := mapping["studentId"].(string); ok && id != "" {
			return id, nil
		}
	}

	matches, err := m.docs.QueryByField(ctx, collectionStudents, "email", email)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", apperrors.NotFoundf("no student for email %q", email)
	}
	if id, ok := matches[0]["studentId"].(string); ok && id != "" {
		return id, nil
	}
	return "", apperrors.NotFoundf("student record for %q has no id", email)
}

// warmStart paints a provisional snapshot from the local cache before the
// provider's asynchronous confirmation arrives. It never outranks an
// authoritative resolution, and it leaves Loading true: only the provider
// resolves the loading state.
func (m *SessionManager) warmStart(ctx context.Context) {
	profileJSON, ok, err := m.store.Get(ctx, keyProfile)
	if err != nil || !ok {
		if err != nil {
			m.logger.WarnContext(ctx, "warm start: read cached profile", "error", err)
		}
		return
	}
	token, ok, err := m.store.Get(ctx, keyToken)
	if err != nil || !ok || token == "" {
		if err != nil {
			m.logger.WarnContext(ctx, "warm start: read cached token", "error", err)
		}
		return
	}
	subject, _, err := m.store.Get(ctx, keySubject)
	if err != nil {
		m.logger.WarnContext(ctx, "warm start: read cached subject", "error", err)
	}

	profile, err := student.FromJSON([]byte(profileJSON))
	if err != nil {
		m.logger.WarnContext(ctx, "warm start: decode cached profile", "error", err)
		return
	}

	m.mu.Lock()
	if m.authoritative {
		m.mu.Unlock()
		return
	}
	m.snap.Profile = profile
	m.snap.SubjectID = subject
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)
}

// publishAuthoritative commits a resolution if it is still the newest
// delivered notification, then notifies subscribers. A resolution that lost
// the race to a newer notification is discarded.
func (m *SessionManager) publishAuthoritative(seq uint64, snap Snapshot) {
	m.pendingMu.Lock()
	newest := m.seq
	m.pendingMu.Unlock()
	if seq != newest {
		return
	}

	m.mu.Lock()
	m.authoritative = true
	m.snap = snap
	m.mu.Unlock()
	m.publish(snap)
}

// publish invokes every subscriber with the snapshot.
func (m *SessionManager) publish(snap Snapshot) {
	m.mu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// clearCache removes the cached token, subject, and profile. Best-effort.
func (m *SessionManager) clearCache(ctx context.Context) {
	for _, key := range []string{keyToken, keySubject, keyProfile} {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.ErrorContext(ctx, "clear cached key", "key", key, "error", err)
		}
	}
}
