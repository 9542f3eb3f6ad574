package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("test-secret", 42, 15)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, time.Minute)

	parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		require.IsType(t, &jwt.SigningMethodHMAC{}, tk.Method)
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.NotContains(t, claims, "role")
}

func TestNewAccessTokenWrongSecretFails(t *testing.T) {
	tok, err := NewAccessToken("secret-a", 42, 15)
	require.NoError(t, err)
	_, err = jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(14)
	require.NoError(t, err)
	b, err := NewRefreshToken(14)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), a.Exp, time.Minute)
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	h3 := HashRefreshRaw("other-token")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, "some-token", h1)
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret-pw", 4) // low cost keeps the test fast
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pw", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pw"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-pw"))
}
