// Package identity verifies externally issued identity assertions. The
// verifier hides the provider SDK behind a narrow interface so services can
// be tested without network access.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"
)

// ErrInvalidAssertion indicates the presented token failed verification:
// expired, malformed, revoked, or signed for another project. This is a
// caller error and does not count against the circuit breaker.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// ErrVerifierUnavailable indicates the upstream verifier could not be
// reached, or the circuit breaker is open.
var ErrVerifierUnavailable = errors.New("identity verifier unavailable")

// Assertion is a verified external identity: the provider-issued subject
// identifier plus the profile claims embedded in the token.
type Assertion struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// Verifier validates an opaque identity token and returns the assertion it
// carries.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Assertion, error)
}

// FirebaseVerifier validates Firebase ID tokens. Verification calls run
// through a circuit breaker so a provider outage fails fast instead of
// stalling every sign-in request.
type FirebaseVerifier struct {
	client  *fbauth.Client
	breaker *gobreaker.CircuitBreaker[*fbauth.Token]
	logger  *slog.Logger
}

// NewFirebaseVerifier initializes the Firebase Admin SDK for the given
// project. When credentialsFile is empty, application default credentials
// are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string, logger *slog.Logger) (*FirebaseVerifier, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth client: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        "firebase-verifier",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.5
		},
		// Rejected tokens are caller errors, not upstream failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidAssertion)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &FirebaseVerifier{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*fbauth.Token](settings),
		logger:  logger,
	}, nil
}

// Verify validates the ID token and extracts the identity assertion.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Assertion, error) {
	token, err := v.breaker.Execute(func() (*fbauth.Token, error) {
		token, err := v.client.VerifyIDToken(ctx, idToken)
		if err != nil {
			if fbauth.IsIDTokenExpired(err) || fbauth.IsIDTokenInvalid(err) || fbauth.IsIDTokenRevoked(err) {
				return nil, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
			}
			return nil, fmt.Errorf("verify id token: %w", err)
		}
		return token, nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAssertion) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrVerifierUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
	}

	return assertionFromToken(token), nil
}

func assertionFromToken(token *fbauth.Token) *Assertion {
	a := &Assertion{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		a.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		a.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		a.PhotoURL = picture
	}
	return a
}
