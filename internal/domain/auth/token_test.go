package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	pair, err := tm.GenerateTokenPair(userID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	got, err := tm.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	got, err = tm.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenManagerRejectsWrongType(t *testing.T) {
	tm, err := NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	pair, err := tm.GenerateTokenPair(uuid.New())
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.VerifyRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	tm, err := NewTokenManager("test-secret", -time.Minute, 24*time.Hour)
	require.NoError(t, err)
	// A non-positive TTL falls back to the default, so sign directly.
	token, err := tm.sign(uuid.New(), tokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerRejectsForeignSignature(t *testing.T) {
	tm1, err := NewTokenManager("secret-one", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	tm2, err := NewTokenManager("secret-two", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	pair, err := tm1.GenerateTokenPair(uuid.New())
	require.NoError(t, err)

	_, err = tm2.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerGarbageInput(t *testing.T) {
	tm, err := NewTokenManager("test-secret", 0, 0)
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.VerifyAccessToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Minute, time.Hour)
	assert.Error(t, err)
}
