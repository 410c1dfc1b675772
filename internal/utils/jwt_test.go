package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtTestSecret = "jwt-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateAccessToken(jwtTestSecret, userID, "a@x.com", 15*time.Minute)
	require.NoError(t, err)

	gotID, gotEmail, err := ParseAccessToken(jwtTestSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "a@x.com", gotEmail)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(jwtTestSecret, uuid.New(), "a@x.com", 15*time.Minute)
	require.NoError(t, err)

	_, _, err = ParseAccessToken("another-secret", token)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := GenerateAccessToken(jwtTestSecret, uuid.New(), "a@x.com", -time.Minute)
	require.NoError(t, err)

	_, _, err = ParseAccessToken(jwtTestSecret, token)
	assert.Error(t, err)
}

func TestDecodeAccessTokenAcceptsExpired(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateAccessToken(jwtTestSecret, userID, "a@x.com", -time.Minute)
	require.NoError(t, err)

	gotID, gotEmail, err := DecodeAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "a@x.com", gotEmail)
}

func TestDecodeAccessTokenRejectsGarbage(t *testing.T) {
	_, _, err := DecodeAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestGenerateRefreshToken(t *testing.T) {
	first, err := GenerateRefreshToken()
	require.NoError(t, err)
	second, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.Len(t, first, 128)
	assert.NotEqual(t, first, second)
}

func TestGenerateVerificationCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}
