package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "identity", time.Hour)
	id := uuid.New()

	token, err := m.GenerateAccessToken(id, "Ada", "ada@example.com", RoleUser)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestVerifyRejects(t *testing.T) {
	m := NewJWTManager("secret", "identity", time.Hour)

	other, err := NewJWTManager("other-secret", "identity", time.Hour).GenerateAccessToken(uuid.New(), "a", "a@x", RoleUser)
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager("secret", "elsewhere", time.Hour).GenerateAccessToken(uuid.New(), "a", "a@x", RoleUser)
	require.NoError(t, err)
	_, err = m.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("secret", "identity", -time.Minute).GenerateAccessToken(uuid.New(), "a", "a@x", RoleUser)
	require.NoError(t, err)
	_, err = m.Verify(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// A token whose subject is not a user id.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42", Issuer: "identity"},
	})
	signed, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
