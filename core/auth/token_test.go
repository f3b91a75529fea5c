package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	Init("test-secret")

	token, err := GenerateToken(42, "crate-digger")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "crate-digger", claims.Username)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	Init("test-secret")

	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("hunter2", hash))
	assert.False(t, VerifyPassword("hunter3", hash))
}
