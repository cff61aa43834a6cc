package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	s := newTestTokenService(t)

	token, err := s.Issue("bridge-1", "SBODEMOUS", time.Hour)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "bridge-1", claims.Subject)
	assert.Equal(t, "SBODEMOUS", claims.Company)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestTokenService_NoExpiry(t *testing.T) {
	s := newTestTokenService(t)
	token, err := s.Issue("bridge-1", "", 0)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenService_Validate_Errors(t *testing.T) {
	s := newTestTokenService(t)

	t.Run("expired", func(t *testing.T) {
		token, err := s.Issue("bridge-1", "", time.Minute)
		require.NoError(t, err)
		s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		defer func() { s.now = time.Now }()

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(time.Hour) }
		token, err := s.Issue("bridge-1", "", 0)
		s.now = time.Now
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService("another-secret-key-at-least-32-chars")
		require.NoError(t, err)
		token, err := other.Issue("bridge-1", "", time.Hour)
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "x", Audience: jwt.ClaimStrings{Issuer}},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "x", Audience: jwt.ClaimStrings{Issuer}},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := s.Issue("", "", time.Hour)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})
}
