package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseRefreshToken(t *testing.T) {
	require.NoError(t, Init())

	pair, err := GenerateTokenPair("1234567890")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshID)
	assert.Positive(t, pair.ExpiresIn)

	claims, err := ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", claims.UserID)
	assert.Equal(t, pair.RefreshID, claims.ID)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseRefreshTokenRejectsAccessToken(t *testing.T) {
	require.NoError(t, Init())
	pair, err := GenerateTokenPair("42")
	require.NoError(t, err)

	_, err = ParseRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestParseRefreshTokenRejectsGarbage(t *testing.T) {
	_, err := ParseRefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
