package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignParseRoundTrip(t *testing.T) {
	signer := NewSigner([]byte("test-secret"), time.Hour)

	token, err := signer.Sign("acct-123", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-123", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID, "every token carries a unique id for revocation")
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewSigner([]byte("secret-a"), time.Hour).Sign("acct-123", "user")
	require.NoError(t, err)

	_, err = NewSigner([]byte("secret-b"), time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	signer := NewSigner([]byte("test-secret"), -time.Minute)

	token, err := signer.Sign("acct-123", "user")
	require.NoError(t, err)

	_, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	signer := NewSigner([]byte("test-secret"), time.Hour)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	signer := NewSigner([]byte("test-secret"), time.Hour)

	first, err := signer.Sign("acct-123", "user")
	require.NoError(t, err)
	second, err := signer.Sign("acct-123", "user")
	require.NoError(t, err)

	c1, err := signer.Parse(first)
	require.NoError(t, err)
	c2, err := signer.Parse(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}
