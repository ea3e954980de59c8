package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvasq/critiq/config"
)

func TestTokenRoundTrip(t *testing.T) {
	setTestConfig()
	token, err := GenerateToken(42, "reader", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "reader", claims.Username)
}

func TestParseTokenExpired(t *testing.T) {
	setTestConfig()
	token, err := GenerateToken(42, "reader", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenWrongSecret(t *testing.T) {
	setTestConfig()
	token, err := GenerateToken(42, "reader", time.Hour)
	require.NoError(t, err)

	config.SetForTesting(config.AppConfig{JWTSecret: "other-secret"})
	_, err = ParseToken(token)
	assert.Error(t, err)
	setTestConfig()
}

func TestParseTokenGarbage(t *testing.T) {
	setTestConfig()
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}
