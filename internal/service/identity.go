package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/identity"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// IdentityService reconciles local password accounts and externally asserted
// identities onto a single user record per person.
type IdentityService struct {
	userRepo repository.UserRepository
	sessions *auth.SessionManager
	verifier identity.Verifier
	producer *event.Producer
	logger   *slog.Logger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(
	userRepo repository.UserRepository,
	sessions *auth.SessionManager,
	verifier identity.Verifier,
	producer *event.Producer,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
		sessions: sessions,
		verifier: verifier,
		producer: producer,
		logger:   logger,
	}
}

// --- Input types ---

// SignupInput holds the parameters for registering a local account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// SigninInput holds the parameters for local password sign-in.
type SigninInput struct {
	Email    string
	Password string
}

// FirebaseSignupInput holds the parameters for creating an account from an
// external identity assertion. UID is the subject the client claims; it must
// match the verified assertion.
type FirebaseSignupInput struct {
	IDToken     string
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// FirebaseSigninInput holds the parameters for provider-backed sign-in. UID,
// when present, is the subject the client claims; it must match the verified
// assertion.
type FirebaseSigninInput struct {
	IDToken string
	UID     string
}

// --- Operations ---

// Signup creates a local password account. The unique index on email is the
// duplicate check; a concurrent signup with the same email loses here with a
// duplicate error.
func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		AuthProvider: domain.AuthProviderLocal,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishRegistered(ctx, user)

	s.logger.InfoContext(ctx, "user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Signin authenticates a local account and issues a session token. Accounts
// created through an external provider carry a sentinel credential and are
// rejected before any hash comparison.
func (s *IdentityService) Signin(ctx context.Context, input SigninInput) (*domain.User, *domain.Session, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.HasUsablePassword() {
		return nil, nil, apperrors.Unauthorized("this account signs in through its identity provider")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user signed in",
		slog.String("user_id", user.ID),
	)

	return user, session, nil
}

// FirebaseSignup creates an account from a verified identity assertion. The
// claimed uid must match the assertion's subject; a mismatch means the client
// presented someone else's token.
func (s *IdentityService) FirebaseSignup(ctx context.Context, input FirebaseSignupInput) (*domain.User, *domain.Session, error) {
	assertion, err := s.verifyAssertion(ctx, input.IDToken)
	if err != nil {
		return nil, nil, err
	}

	if input.UID != "" && input.UID != assertion.UID {
		return nil, nil, apperrors.Unauthorized("token subject does not match the claimed identity")
	}

	user := userFromAssertion(assertion)
	if input.DisplayName != "" {
		user.Name = input.DisplayName
	}
	if email := normalizeEmail(input.Email); email != "" {
		user.Email = email
	}
	if input.PhotoURL != "" {
		user.PhotoURL = input.PhotoURL
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	s.publishRegistered(ctx, user)

	session, err := s.issueSession(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user signed up via identity provider",
		slog.String("user_id", user.ID),
		slog.String("firebase_uid", assertion.UID),
	)

	return user, session, nil
}

// FirebaseSignin resolves a verified assertion to exactly one user record:
// a claimed uid that differs from the assertion's subject is rejected, then
// lookup goes by subject uid first, then by email (linking the uid to the existing
// account), creating a new record only when neither matches. A concurrent
// create for the same identity loses on the firebase_uid unique index and
// resolves to the winner's record.
func (s *IdentityService) FirebaseSignin(ctx context.Context, input FirebaseSigninInput) (*domain.User, *domain.Session, error) {
	assertion, err := s.verifyAssertion(ctx, input.IDToken)
	if err != nil {
		return nil, nil, err
	}

	if input.UID != "" && input.UID != assertion.UID {
		return nil, nil, apperrors.Unauthorized("token subject does not match the claimed identity")
	}

	user, err := s.resolveAssertion(ctx, assertion)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user signed in via identity provider",
		slog.String("user_id", user.ID),
		slog.String("firebase_uid", assertion.UID),
	)

	return user, session, nil
}

// ResolveAssertion verifies a raw identity token and returns the user record
// it maps to, creating one on first contact. This backs the assertion-guarded
// profile route, which accepts provider tokens instead of session tokens.
func (s *IdentityService) ResolveAssertion(ctx context.Context, idToken string) (*domain.User, error) {
	assertion, err := s.verifyAssertion(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.resolveAssertion(ctx, assertion)
}

// Profile returns the user record for an authenticated session.
func (s *IdentityService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("session refers to an unknown user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ValidateSession parses a session token and returns its claims. Handlers
// wire this into the auth middleware.
func (s *IdentityService) ValidateSession(_ context.Context, token string) (*auth.SessionClaims, error) {
	claims, err := s.sessions.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired session token")
	}
	return claims, nil
}

// --- Helpers ---

func (s *IdentityService) resolveAssertion(ctx context.Context, assertion *identity.Assertion) (*domain.User, error) {
	// Fast path: already linked.
	user, err := s.userRepo.GetByFirebaseUID(ctx, assertion.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get user by firebase uid: %w", err)
	}

	// Email collision: the person already has a local account. Link the
	// external identity rather than creating a second record.
	if email := normalizeEmail(assertion.Email); email != "" {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err == nil {
			if err := s.userRepo.LinkFirebaseUID(ctx, existing.ID, assertion.UID); err != nil {
				if errors.Is(err, apperrors.ErrDuplicate) {
					// A concurrent sign-in linked it first.
					return s.userRepo.GetByFirebaseUID(ctx, assertion.UID)
				}
				return nil, fmt.Errorf("link firebase uid: %w", err)
			}
			existing.FirebaseUID = &assertion.UID
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
	}

	// First contact: create a record for this identity.
	user = userFromAssertion(assertion)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost the creation race; the winner's record is the truth.
			return s.userRepo.GetByFirebaseUID(ctx, assertion.UID)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publishRegistered(ctx, user)

	s.logger.InfoContext(ctx, "user created from identity assertion",
		slog.String("user_id", user.ID),
		slog.String("firebase_uid", assertion.UID),
	)

	return user, nil
}

func (s *IdentityService) verifyAssertion(ctx context.Context, idToken string) (*identity.Assertion, error) {
	if idToken == "" {
		return nil, apperrors.InvalidInput("id token is required")
	}

	assertion, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrVerifierUnavailable) {
			return nil, apperrors.Upstream("identity provider unavailable", err)
		}
		return nil, apperrors.Unauthorized("invalid identity token")
	}
	return assertion, nil
}

func (s *IdentityService) issueSession(user *domain.User) (*domain.Session, error) {
	token, expiresAt, err := s.sessions.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate session: %w", err)
	}
	return &domain.Session{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *IdentityService) publishRegistered(ctx context.Context, user *domain.User) {
	// Publish failures never fail the request.
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// normalizeEmail canonicalizes an email address so lookups and the unique
// index agree on what counts as the same address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// userFromAssertion builds a user record for an external identity. The stored
// credential is a sentinel that can never satisfy a password check.
func userFromAssertion(assertion *identity.Assertion) *domain.User {
	now := time.Now().UTC()
	uid := assertion.UID
	name := assertion.Name
	if name == "" && assertion.Email != "" {
		name = assertion.Email
	}
	return &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        normalizeEmail(assertion.Email),
		PasswordHash: domain.SentinelPassword,
		AuthProvider: domain.AuthProviderFirebase,
		FirebaseUID:  &uid,
		PhotoURL:     assertion.PhotoURL,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
