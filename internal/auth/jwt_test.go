package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-token-tests"

func TestSessionManager_GenerateAndValidate(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour)

	token, expiresAt, err := m.Generate("user-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "storefront", claims.Issuer)
}

func TestSessionManager_Validate_ExpiredToken(t *testing.T) {
	m := NewSessionManager(testSecret, -time.Minute)

	token, _, err := m.Generate("user-1", "user")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestSessionManager_Validate_WrongSecret(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour)
	other := NewSessionManager("a-completely-different-secret-key", time.Hour)

	token, _, err := m.Generate("user-1", "user")
	require.NoError(t, err)

	claims, err := other.Validate(token)
	assert.Nil(t, claims)
	assert.Error(t, err)
}

func TestSessionManager_Validate_Garbage(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour)

	claims, err := m.Validate("not-a-jwt")
	assert.Nil(t, claims)
	assert.Error(t, err)
}
