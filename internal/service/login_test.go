package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/mocks/fakes"
	"github.com/campusgate/portal-api/internal/ports"
)

func newLoginFixture(t *testing.T) (*LoginService, *fakes.FakeProvider, *fakes.MemoryDocumentStore) {
	t.Helper()
	provider := fakes.NewFakeProvider()
	docs := fakes.NewMemoryDocumentStore()
	seedStudent(docs)

	provider.SignInFunc = func(_ context.Context, email, password string) (ports.ProviderSession, error) {
		if email != testUniEmail || password != "passw0rd" {
			return nil, ports.ErrInvalidCredentials
		}
		return testSession(), nil
	}

	svc := NewLoginService(LoginServiceOptions{Provider: provider, Documents: docs})
	return svc, provider, docs
}

func TestAuthenticate_WithEmail(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	profile, subject, err := svc.Authenticate(context.Background(), testUniEmail, "passw0rd")
	require.NoError(t, err)
	assert.Equal(t, testSubject, subject)
	assert.Equal(t, "Hassan Raza", profile.DisplayName())
}

func TestAuthenticate_WithStudentID(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	// The sign-in email is resolved off the student document.
	profile, subject, err := svc.Authenticate(context.Background(), testStudent, "passw0rd")
	require.NoError(t, err)
	assert.Equal(t, testSubject, subject)
	assert.Equal(t, testStudent, profile.StudentID)
}

func TestAuthenticate_Validation(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	_, _, err := svc.Authenticate(context.Background(), "  ", "passw0rd")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "identifier", apperrors.GetField(err))

	_, _, err = svc.Authenticate(context.Background(), testUniEmail, "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestAuthenticate_UnknownStudentID(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	_, _, err := svc.Authenticate(context.Background(), "STU-9999", "passw0rd")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Contains(t, err.Error(), "No student found")
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	_, _, err := svc.Authenticate(context.Background(), testUniEmail, "nope")
	assert.True(t, apperrors.IsAuth(err))
	assert.Contains(t, err.Error(), "Incorrect password or email")
}

func TestAuthenticate_RateLimited(t *testing.T) {
	svc, provider, _ := newLoginFixture(t)
	provider.SignInFunc = func(context.Context, string, string) (ports.ProviderSession, error) {
		return nil, ports.ErrTooManyAttempts
	}

	_, _, err := svc.Authenticate(context.Background(), testUniEmail, "passw0rd")
	assert.True(t, apperrors.IsRateLimited(err))
}

func TestAuthenticate_InactiveStudentSignsOut(t *testing.T) {
	svc, provider, docs := newLoginFixture(t)
	doc := studentDoc()
	doc["status"] = map[string]any{"isActive": false}
	docs.Put("students", testStudent, doc)

	_, _, err := svc.Authenticate(context.Background(), testUniEmail, "passw0rd")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Contains(t, err.Error(), "inactive")
	assert.Equal(t, 1, provider.SignOutCalls)
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	svc, _, docs := newLoginFixture(t)
	docs.Err = errors.New("store down")

	_, _, err := svc.Authenticate(context.Background(), testStudent, "passw0rd")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	// The storage detail stays out of the user-facing message.
	assert.Contains(t, err.Error(), "Login failed")
}
