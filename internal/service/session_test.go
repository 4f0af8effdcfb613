package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portal-api/internal/domain/student"
	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/mocks/fakes"
	"github.com/campusgate/portal-api/internal/ports"
)

const (
	testSubject  = "subj-1"
	testStudent  = "STU-1042"
	testUniEmail = "stu1042@university.edu"
)

func studentDoc() ports.Document {
	return ports.Document{
		"studentId": testStudent,
		"name":      "Hassan Raza",
		"contact":   map[string]any{"universityEmail": testUniEmail},
		"status":    map[string]any{"isActive": true},
	}
}

func seedStudent(docs *fakes.MemoryDocumentStore) {
	docs.Put("students", testStudent, studentDoc())
	docs.Put("studentEmails", testUniEmail, ports.Document{"studentId": testStudent})
}

func testSession() *fakes.FakeSession {
	return &fakes.FakeSession{
		ID: ports.ProviderIdentity{
			SubjectID: testSubject,
			Email:     testUniEmail,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		TokenVal: "tok-abc",
	}
}

type sessionFixture struct {
	provider *fakes.FakeProvider
	docs     *fakes.MemoryDocumentStore
	store    *fakes.MemoryLocalStore
	manager  *SessionManager
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		provider: fakes.NewFakeProvider(),
		docs:     fakes.NewMemoryDocumentStore(),
		store:    fakes.NewMemoryLocalStore(),
	}
	seedStudent(f.docs)
	f.manager = NewSessionManager(SessionManagerOptions{
		Provider:  f.provider,
		Documents: f.docs,
		Store:     f.store,
	})
	t.Cleanup(f.manager.Close)
	return f
}

func (f *sessionFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.Start(context.Background()))
}

func waitForSnapshot(t *testing.T, m *SessionManager, want func(Snapshot) bool) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return want(m.Snapshot()) },
		2*time.Second, 5*time.Millisecond)
	return m.Snapshot()
}

func TestSessionManager_InitialSnapshotIsLoading(t *testing.T) {
	f := newSessionFixture(t)

	snap := f.manager.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.SignedIn())
}

func TestSessionManager_SignedInResolution(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	f.provider.Fire(testSession())

	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })
	assert.False(t, snap.Loading)
	assert.Equal(t, testSubject, snap.SubjectID)
	assert.Equal(t, "Hassan Raza", snap.Profile.DisplayName())

	// Token, subject, and profile are cached for the next warm start.
	tok, ok, err := f.store.Get(context.Background(), keyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-abc", tok)
	_, ok, err = f.store.Get(context.Background(), keyProfile)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionManager_SignedOutResolutionClearsCache(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	f.provider.Fire(nil)
	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.SignedIn() && !s.Loading })
	assert.Nil(t, snap.Profile)
	assert.Empty(t, f.store.Keys())
}

func TestSessionManager_TokenFailureDegradesToSignedOut(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	sess := testSession()
	sess.TokenErr = errors.New("network down")
	f.provider.Fire(sess)

	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.Loading })
	assert.Nil(t, snap.Profile)
}

func TestSessionManager_MissingProfileDegradesToSignedOut(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	sess := testSession()
	sess.ID.Email = "unknown@university.edu"
	f.provider.Fire(sess)

	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.Loading })
	assert.Nil(t, snap.Profile)
}

func TestSessionManager_WarmStart(t *testing.T) {
	f := newSessionFixture(t)
	profile := mustProfileJSON(t)
	f.store.Seed(keyProfile, profile)
	f.store.Seed(keyToken, "tok-cached")
	f.store.Seed(keySubject, testSubject)

	f.start(t)

	// The cached profile paints the snapshot, but loading stays true until
	// the provider resolves.
	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })
	assert.True(t, snap.Loading)
	assert.Equal(t, testSubject, snap.SubjectID)
}

func TestSessionManager_AuthoritativeSignedOutBeatsWarmStart(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(keyProfile, mustProfileJSON(t))
	f.store.Seed(keyToken, "tok-cached")

	f.start(t)
	f.provider.Fire(nil)

	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.Loading })
	assert.Nil(t, snap.Profile)

	// A warm start arriving after the authoritative resolution is ignored.
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, f.manager.Snapshot().Profile)
}

func TestSessionManager_StaleResolutionDiscarded(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	// A resolution carrying an outdated sequence number must not win.
	f.manager.publishAuthoritative(0, Snapshot{Loading: false})
	assert.True(t, f.manager.Snapshot().SignedIn())
}

func TestSessionManager_LastNotificationWins(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)

	f.provider.Fire(testSession())
	f.provider.Fire(nil)

	snap := waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.Loading })
	// Snapshot settles on the newest state, signed out.
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.SignedIn() })
	assert.False(t, snap.Loading)
}

func TestSessionManager_Logout(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)
	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	require.NoError(t, f.manager.Logout(context.Background()))
	assert.Nil(t, f.manager.Snapshot().Profile)
	assert.Equal(t, 1, f.provider.SignOutCalls)
}

func TestSessionManager_LogoutClearsEvenWhenProviderFails(t *testing.T) {
	f := newSessionFixture(t)
	f.provider.SignOutFunc = func(context.Context) error { return errors.New("provider unreachable") }
	f.start(t)
	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	err := f.manager.Logout(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))

	assert.Nil(t, f.manager.Snapshot().Profile)
	assert.Empty(t, f.store.Keys())
}

func TestSessionManager_UpdateProfile(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)
	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	profile := mustProfile(t)
	require.NoError(t, f.manager.UpdateProfile(context.Background(), profile, testSubject))

	snap := f.manager.Snapshot()
	assert.Same(t, profile, snap.Profile)
	assert.Equal(t, testSubject, snap.SubjectID)

	// Nil profile is rejected.
	err := f.manager.UpdateProfile(context.Background(), nil, testSubject)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSessionManager_UpdateProfileSurvivesStorageFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.store.SetErr = errors.New("disk full")
	f.start(t)

	require.NoError(t, f.manager.UpdateProfile(context.Background(), mustProfile(t), testSubject))
	assert.True(t, f.manager.Snapshot().SignedIn())
}

func TestSessionManager_SubscribeFanOut(t *testing.T) {
	f := newSessionFixture(t)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := f.manager.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	f.start(t)
	f.provider.Fire(testSession())
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return s.SignedIn() })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].SignedIn()
	}, 2*time.Second, 5*time.Millisecond)

	unsubscribe()
	f.provider.Fire(nil)
	waitForSnapshot(t, f.manager, func(s Snapshot) bool { return !s.SignedIn() })

	mu.Lock()
	final := seen[len(seen)-1]
	mu.Unlock()
	assert.True(t, final.SignedIn())
}

func TestSessionManager_StartTwice(t *testing.T) {
	f := newSessionFixture(t)
	f.start(t)
	assert.Error(t, f.manager.Start(context.Background()))
}

func mustProfile(t *testing.T) *student.Profile {
	t.Helper()
	p, err := student.FromDocument(studentDoc())
	require.NoError(t, err)
	return p
}

func mustProfileJSON(t *testing.T) string {
	t.Helper()
	data, err := mustProfile(t).JSON()
	require.NoError(t, err)
	return string(data)
}
