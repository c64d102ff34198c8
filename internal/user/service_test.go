package user

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return ss
}

func TestValidateTokenRoundTrip(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signToken(t, "test-secret", Claims{
		ID:       42,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, username, err := s.ValidateToken(ss)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, "alice", username)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signToken(t, "some-other-secret", Claims{ID: 1, Username: "mallory"})

	_, _, err := s.ValidateToken(ss)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	s := NewService(nil, "test-secret")

	ss := signToken(t, "test-secret", Claims{
		ID:       1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, _, err := s.ValidateToken(ss)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	s := NewService(nil, "test-secret")
	_, _, err := s.ValidateToken("not.a.token")
	assert.Error(t, err)
}
