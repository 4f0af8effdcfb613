package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/campusgate/portal-api/internal/domain/student"
	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/ports"
)

// LoginServiceOptions groups dependencies for LoginService.
type LoginServiceOptions struct {
	Provider  ports.IdentityProvider
	Documents ports.DocumentStore
	Logger    *slog.Logger
}

// LoginService runs the interactive sign-in flow: identifier resolution,
// provider authentication, and the post-sign-in profile and status checks.
type LoginService struct {
	provider ports.IdentityProvider
	docs     ports.DocumentStore
	logger   *slog.Logger
}

// NewLoginService constructs a LoginService.
func NewLoginService(opts LoginServiceOptions) *LoginService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginService{
		provider: opts.Provider,
		docs:     opts.Documents,
		logger:   logger,
	}
}

// Authenticate signs a student in. The identifier is either a student id
// or an email; both resolve to the provider sign-in email through the
// student documents. On success the resolved profile and provider subject
// are returned; the caller hands them to SessionManager.UpdateProfile.
func (s *LoginService) Authenticate(ctx context.Context, identifier, password string) (*student.Profile, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, "", apperrors.ValidationField("identifier", "identifier is required")
	}
	if password == "" {
		return nil, "", apperrors.ValidationField("password", "password is required")
	}

	email, err := s.resolveSignInEmail(ctx, identifier)
	if err != nil {
		return nil, "", err
	}

	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, "", classifySignInError(err)
	}
	identity := sess.Identity()

	profile, err := s.loadProfile(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	if !profile.Active() {
		if outErr := s.provider.SignOut(ctx); outErr != nil {
			s.logger.WarnContext(ctx, "sign out after inactive-account check failed", "error", outErr)
		}
		return nil, "", apperrors.Auth("Your account is inactive. Please contact the administration office.")
	}

	return profile, identity.SubjectID, nil
}

// resolveSignInEmail turns a student id or email identifier into the
// email registered with the identity provider.
func (s *LoginService) resolveSignInEmail(ctx context.Context, identifier string) (string, error) {
	if !strings.Contains(identifier, "@") {
		// Student id: the sign-in email comes off the student document.
		doc, err := s.docs.GetDocument(ctx, collectionStudents, identifier)
		if err != nil {
			return "", storageAuthError(ctx, s.logger, err)
		}
		if doc == nil {
			return "", apperrors.Auth("No student found with this ID. Please check and try again.")
		}
		email := student.Resolve(doc, student.FieldSignInEmail)
		if email == "" {
			return "", apperrors.Auth("This student record has no sign-in email. Please contact the administration office.")
		}
		return email, nil
	}
	return identifier, nil
}

// loadProfile re-reads the student document after sign-in.
func (s *LoginService) loadProfile(ctx context.Context, identity ports.ProviderIdentity) (*student.Profile, error) {
	studentID, err := s.lookupStudentID(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.GetDocument(ctx, collectionStudents, studentID)
	if err != nil {
		return nil, storageAuthError(ctx, s.logger, err)
	}
	if doc == nil {
		return nil, apperrors.Auth("No student record is linked to this account.")
	}

	doc["uid"] = identity.SubjectID
	if identity.Email != "" {
		doc["email"] = identity.Email
	}

	profile, err := student.FromDocument(doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode student profile")
	}
	return profile, nil
}

func (s *LoginService) lookupStudentID(ctx context.Context, email string) (string, error) {
	mapping, err := s.docs.GetDocument(ctx, collectionStudentEmails, email)
	if err != nil {
		return "", storageAuthError(ctx, s.logger, err)
	}
	if mapping != nil {
		if id, ok := mapping["studentId"].(string); ok && id != "" {
			return id, nil
		}
	}

	matches, err := s.docs.QueryByField(ctx, collectionStudents, "email", email)
	if err != nil {
		return "", storageAuthError(ctx, s.logger, err)
	}
	if len(matches) > 0 {
		if id, ok := matches[0]["studentId"].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", apperrors.Auth("No student record is linked to this account.")
}

// classifySignInError maps provider sentinels to user-facing auth errors.
func classifySignInError(err error) error {
	switch {
	case errors.Is(err, ports.ErrInvalidCredentials):
		return apperrors.Auth("Incorrect password or email. Please try again.")
	case errors.Is(err, ports.ErrMalformedEmail):
		return apperrors.Auth("The sign-in email for this account is invalid. Please contact the administration office.")
	case errors.Is(err, ports.ErrTooManyAttempts):
		return apperrors.RateLimited("Too many failed attempts. Please wait a moment and try again.")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeAuth, "sign-in failed")
	}
}

// storageAuthError logs the underlying failure and returns the generic
// login-time message; the store's error detail never reaches the user.
func storageAuthError(ctx context.Context, logger *slog.Logger, err error) error {
	logger.ErrorContext(ctx, "student lookup failed", "error", err)
	return apperrors.Wrap(err, apperrors.ErrCodeAuth, "Login failed. Please try again.")
}
