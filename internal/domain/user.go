package domain

import (
	"time"
)

// Auth provider constants.
const (
	AuthProviderLocal    = "local"
	AuthProviderFirebase = "firebase"
)

// User role constants.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SentinelPassword is the fixed password literal stored for accounts created
// through an external identity provider. Accounts carrying it can never sign
// in with a password: the signin path rejects it before any hash comparison.
const SentinelPassword = "firebase-auth"

// User represents a registered user in the system. A user record is unique
// per email regardless of how it was created; an externally created account
// additionally carries the provider's subject identifier.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AuthProvider string    `json:"auth_provider"`
	FirebaseUID  *string   `json:"firebase_uid,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasUsablePassword reports whether the account can authenticate with a
// password. Externally created accounts store a sentinel hash that must
// never be matched against user input.
func (u *User) HasUsablePassword() bool {
	return u.AuthProvider == AuthProviderLocal
}

// ExternallyAuthenticated reports whether the account is linked to an
// external identity provider.
func (u *User) ExternallyAuthenticated() bool {
	return u.FirebaseUID != nil && *u.FirebaseUID != ""
}

// Session holds a signed session token and its expiry.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
