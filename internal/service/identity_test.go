package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/identity"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) LinkFirebaseUID(ctx context.Context, userID, uid string) error {
	args := m.Called(ctx, userID, uid)
	return args.Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- Mock Verifier ---

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (*identity.Assertion, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Assertion), args.Error(1)
}

// --- Fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestSessions() *auth.SessionManager {
	return auth.NewSessionManager("identity-service-test-secret", 168*time.Hour)
}

func newIdentityFixture(t *testing.T) (*IdentityService, *mockUserRepository, *mockVerifier) {
	t.Helper()
	userRepo := new(mockUserRepository)
	verifier := new(mockVerifier)
	svc := NewIdentityService(userRepo, newTestSessions(), verifier, newTestEventProducer(), testLogger())
	return svc, userRepo, verifier
}

func sampleAssertion() *identity.Assertion {
	return &identity.Assertion{
		UID:      "firebase-uid-1",
		Email:    "jane@example.com",
		Name:     "Jane Doe",
		PhotoURL: "https://example.com/jane.png",
	}
}

// ---------------------------------------------------------------------------
// Signup / Signin (local)
// ---------------------------------------------------------------------------

func TestIdentityService_Signup_Success(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@example.com" &&
			u.AuthProvider == domain.AuthProviderLocal &&
			u.Role == domain.RoleUser &&
			u.PasswordHash != "secret-password" &&
			u.FirebaseUID == nil
	})).Return(nil)

	user, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
	userRepo.AssertExpectations(t)
}

func TestIdentityService_Signup_ShortPassword(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	user, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "short",
	})

	assert.Nil(t, user)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	userRepo.AssertNotCalled(t, "Create")
}

func TestIdentityService_Signup_DuplicateEmail(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.Duplicate(`user with email "alice@example.com" already exists`))

	user, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret-password",
	})

	assert.Nil(t, user)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicate))
	userRepo.AssertExpectations(t)
}

func TestIdentityService_Signin_Success(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &domain.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		AuthProvider: domain.AuthProviderLocal,
		Role:         domain.RoleUser,
	}
	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

	user, session, err := svc.Signin(context.Background(), SigninInput{
		Email:    "alice@example.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	require.NotNil(t, session)

	// The session token decodes back to the stored record's identity.
	claims, err := newTestSessions().Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestIdentityService_Signin_WrongPassword(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &domain.User{
		ID:           "u-1",
		PasswordHash: string(hash),
		AuthProvider: domain.AuthProviderLocal,
	}
	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

	user, session, err := svc.Signin(context.Background(), SigninInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestIdentityService_Signin_RejectsExternalAccount(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	uid := "firebase-uid-1"
	stored := &domain.User{
		ID:           "u-1",
		PasswordHash: domain.SentinelPassword,
		AuthProvider: domain.AuthProviderFirebase,
		FirebaseUID:  &uid,
	}
	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(stored, nil)

	// The sentinel itself must not work as a password.
	user, session, err := svc.Signin(context.Background(), SigninInput{
		Email:    "jane@example.com",
		Password: domain.SentinelPassword,
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestIdentityService_Signin_UnknownEmail(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	user, session, err := svc.Signin(context.Background(), SigninInput{
		Email:    "ghost@example.com",
		Password: "whatever-password",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// ---------------------------------------------------------------------------
// FirebaseSignup
// ---------------------------------------------------------------------------

func TestIdentityService_FirebaseSignup_Success(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "jane@example.com" &&
			u.AuthProvider == domain.AuthProviderFirebase &&
			u.PasswordHash == domain.SentinelPassword &&
			u.FirebaseUID != nil && *u.FirebaseUID == "firebase-uid-1"
	})).Return(nil)

	user, session, err := svc.FirebaseSignup(context.Background(), FirebaseSignupInput{
		IDToken: "valid-token",
		UID:     "firebase-uid-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.NotNil(t, session)
	userRepo.AssertExpectations(t)
}

func TestIdentityService_FirebaseSignup_SubjectMismatch(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)

	user, session, err := svc.FirebaseSignup(context.Background(), FirebaseSignupInput{
		IDToken: "valid-token",
		UID:     "someone-elses-uid",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	userRepo.AssertNotCalled(t, "Create")
}

func TestIdentityService_FirebaseSignup_DuplicateEmail(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.Duplicate(`user with email "jane@example.com" already exists`))

	user, session, err := svc.FirebaseSignup(context.Background(), FirebaseSignupInput{
		IDToken: "valid-token",
		UID:     "firebase-uid-1",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicate))
}

func TestIdentityService_FirebaseSignup_InvalidToken(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "bad-token").
		Return(nil, identity.ErrInvalidAssertion)

	user, session, err := svc.FirebaseSignup(context.Background(), FirebaseSignupInput{
		IDToken: "bad-token",
		UID:     "firebase-uid-1",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	userRepo.AssertNotCalled(t, "Create")
}

// ---------------------------------------------------------------------------
// FirebaseSignin
// ---------------------------------------------------------------------------

func TestIdentityService_FirebaseSignin_ExistingLinkedUser(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	uid := "firebase-uid-1"
	stored := &domain.User{ID: "u-1", FirebaseUID: &uid, Role: domain.RoleUser}

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	userRepo.On("GetByFirebaseUID", mock.Anything, uid).Return(stored, nil)

	user, session, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{IDToken: "valid-token"})

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.NotNil(t, session)
	userRepo.AssertNotCalled(t, "Create")
	userRepo.AssertNotCalled(t, "LinkFirebaseUID")
}

func TestIdentityService_FirebaseSignin_SubjectMismatch(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)

	user, session, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{
		IDToken: "valid-token",
		UID:     "someone-elses-uid",
	})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	userRepo.AssertNotCalled(t, "GetByFirebaseUID")
	userRepo.AssertNotCalled(t, "Create")
	userRepo.AssertNotCalled(t, "LinkFirebaseUID")
}

func TestIdentityService_FirebaseSignin_LinksExistingEmailAccount(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	stored := &domain.User{ID: "u-1", Email: "jane@example.com", AuthProvider: domain.AuthProviderLocal, Role: domain.RoleUser}

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	userRepo.On("GetByFirebaseUID", mock.Anything, "firebase-uid-1").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(stored, nil)
	userRepo.On("LinkFirebaseUID", mock.Anything, "u-1", "firebase-uid-1").Return(nil)

	user, _, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{IDToken: "valid-token"})

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	require.NotNil(t, user.FirebaseUID)
	assert.Equal(t, "firebase-uid-1", *user.FirebaseUID)
	userRepo.AssertNotCalled(t, "Create")
}

func TestIdentityService_FirebaseSignin_FirstContactCreatesUser(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	userRepo.On("GetByFirebaseUID", mock.Anything, "firebase-uid-1").Return(nil, apperrors.ErrNotFound)
	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.PasswordHash == domain.SentinelPassword &&
			u.AuthProvider == domain.AuthProviderFirebase
	})).Return(nil)

	user, session, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{IDToken: "valid-token"})

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.NotNil(t, session)
	userRepo.AssertExpectations(t)
}

func TestIdentityService_FirebaseSignin_CreationRaceLoserResolvesWinner(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	uid := "firebase-uid-1"
	winner := &domain.User{ID: "u-winner", FirebaseUID: &uid, Role: domain.RoleUser}

	verifier.On("Verify", mock.Anything, "valid-token").Return(sampleAssertion(), nil)
	// First lookup misses, create loses the race, re-read finds the winner.
	userRepo.On("GetByFirebaseUID", mock.Anything, uid).Return(nil, apperrors.ErrNotFound).Once()
	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, apperrors.ErrNotFound)
	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.Duplicate("identity already registered"))
	userRepo.On("GetByFirebaseUID", mock.Anything, uid).Return(winner, nil).Once()

	user, session, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{IDToken: "valid-token"})

	require.NoError(t, err)
	assert.Equal(t, "u-winner", user.ID)
	assert.NotNil(t, session)
	userRepo.AssertExpectations(t)
}

func TestIdentityService_FirebaseSignin_VerifierUnavailable(t *testing.T) {
	svc, userRepo, verifier := newIdentityFixture(t)

	verifier.On("Verify", mock.Anything, "any-token").
		Return(nil, identity.ErrVerifierUnavailable)

	user, session, err := svc.FirebaseSignin(context.Background(), FirebaseSigninInput{IDToken: "any-token"})

	assert.Nil(t, user)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	userRepo.AssertNotCalled(t, "GetByFirebaseUID")
}

// ---------------------------------------------------------------------------
// Profile / ValidateSession
// ---------------------------------------------------------------------------

func TestIdentityService_Profile_Success(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	stored := &domain.User{ID: "u-1", Name: "Alice"}
	userRepo.On("GetByID", mock.Anything, "u-1").Return(stored, nil)

	user, err := svc.Profile(context.Background(), "u-1")

	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestIdentityService_Profile_UnknownUser(t *testing.T) {
	svc, userRepo, _ := newIdentityFixture(t)

	userRepo.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	user, err := svc.Profile(context.Background(), "ghost")

	assert.Nil(t, user)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestIdentityService_ValidateSession(t *testing.T) {
	svc, _, _ := newIdentityFixture(t)

	token, _, err := newTestSessions().Generate("u-1", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = svc.ValidateSession(context.Background(), "garbage")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}
