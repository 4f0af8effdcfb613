package fakes

// Package fakes contains hand-written test doubles for the portal ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	"github.com/campusgate/portal-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeProvider)(nil)
	_ ports.ProviderSession  = (*FakeSession)(nil)
	_ ports.DocumentStore    = (*MemoryDocumentStore)(nil)
	_ ports.LocalStore       = (*MemoryLocalStore)(nil)
)

// FakeSession is a scripted provider session.
type FakeSession struct {
	ID       ports.ProviderIdentity
	TokenVal string
	TokenErr error
}

func (s *FakeSession) Identity() ports.ProviderIdentity { return s.ID }

func (s *FakeSession) Token(_ context.Context) (string, error) {
	if s.TokenErr != nil {
		return "", s.TokenErr
	}
	return s.TokenVal, nil
}

// FakeProvider simulates an identity provider. Tests drive its state with
// Fire; SignIn and SignOut delegate to optional func fields.
type FakeProvider struct {
	SignInFunc  func(ctx context.Context, email, password string) (ports.ProviderSession, error)
	SignOutFunc func(ctx context.Context) error

	mu        sync.Mutex
	current   ports.ProviderSession
	listeners map[int]func(ports.ProviderSession)
	nextID    int

	SignOutCalls int
}

// NewFakeProvider creates a signed-out provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{listeners: make(map[int]func(ports.ProviderSession))}
}

// Fire sets the current session and notifies listeners, simulating a
// provider-originated state change. Pass nil for signed out.
func (p *FakeProvider) Fire(sess ports.ProviderSession) {
	p.mu.Lock()
	p.current = sess
	fns := make([]func(ports.ProviderSession), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

func (p *FakeProvider) SignIn(ctx context.Context, email, password string) (ports.ProviderSession, error) {
	if p.SignInFunc != nil {
		sess, err := p.SignInFunc(ctx, email, password)
		if err != nil {
			return nil, err
		}
		p.Fire(sess)
		return sess, nil
	}
	return nil, ports.ErrInvalidCredentials
}

func (p *FakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.SignOutCalls++
	p.mu.Unlock()

	var err error
	if p.SignOutFunc != nil {
		err = p.SignOutFunc(ctx)
	}
	p.Fire(nil)
	return err
}

func (p *FakeProvider) CurrentSession() ports.ProviderSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *FakeProvider) OnStateChange(fn func(ports.ProviderSession)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// MemoryDocumentStore is an in-memory document store keyed by
// collection/key. Errs, when set, is returned by every read.
type MemoryDocumentStore struct {
	mu        sync.Mutex
	docs      map[string]map[string]ports.Document
	listeners []docListener

	Err error
}

type docListener struct {
	collection string
	onChange   func(collection, key string)
	cancelled  *bool
}

// NewMemoryDocumentStore creates an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]map[string]ports.Document)}
}

// Put inserts or replaces a document and notifies subscribers.
func (s *MemoryDocumentStore) Put(collection, key string, doc ports.Document) {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]ports.Document)
	}
	s.docs[collection][key] = doc
	listeners := make([]docListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		if l.collection == collection && !*l.cancelled {
			l.onChange(collection, key)
		}
	}
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, collection, key string) (ports.Document, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	if !ok {
		return nil, nil
	}
	out := make(ports.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryDocumentStore) QueryByField(_ context.Context, collection, field, value string) ([]ports.Document, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.Document
	for _, doc := range s.docs[collection] {
		if v, ok := doc[field].(string); ok && v == value {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *MemoryDocumentStore) Subscribe(_ context.Context, collection string, onChange func(collection, key string)) (func(), error) {
	if s.Err != nil {
		return nil, s.Err
	}
	cancelled := false
	s.mu.Lock()
	s.listeners = append(s.listeners, docListener{
		collection: collection,
		onChange:   onChange,
		cancelled:  &cancelled,
	})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cancelled = true
	}, nil
}

// MemoryLocalStore is an in-memory key-value store. GetErr, SetErr, and
// RemoveErr inject failures per operation.
type MemoryLocalStore struct {
	mu   sync.Mutex
	data map[string]string

	GetErr    error
	SetErr    error
	RemoveErr error
}

// NewMemoryLocalStore creates an empty local store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{data: make(map[string]string)}
}

// Seed writes a key without error injection, for test setup.
func (s *MemoryLocalStore) Seed(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryLocalStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryLocalStore) Set(_ context.Context, key, value string) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryLocalStore) Remove(_ context.Context, key string) error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns a snapshot of the stored keys, for assertions.
func (s *MemoryLocalStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
