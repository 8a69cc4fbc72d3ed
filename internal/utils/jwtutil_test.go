package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", "ecobazar-api", "ecobazar-clients")

	token, exp, err := m.GenerateToken(42, "CUSTOMER")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), exp, time.Minute)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "CUSTOMER", claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	m := NewTokenManager("test-secret", "ecobazar-api", "ecobazar-clients")
	other := NewTokenManager("other-secret", "ecobazar-api", "ecobazar-clients")

	token, _, err := m.GenerateToken(42, "CUSTOMER")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenIssuerAndAudience(t *testing.T) {
	m := NewTokenManager("test-secret", "ecobazar-api", "ecobazar-clients")

	foreignIssuer := NewTokenManager("test-secret", "someone-else", "ecobazar-clients")
	token, _, err := foreignIssuer.GenerateToken(42, "CUSTOMER")
	require.NoError(t, err)
	_, err = m.ParseToken(token)
	assert.EqualError(t, err, "invalid token issuer")

	foreignAudience := NewTokenManager("test-secret", "ecobazar-api", "someone-else")
	token, _, err = foreignAudience.GenerateToken(42, "CUSTOMER")
	require.NoError(t, err)
	_, err = m.ParseToken(token)
	assert.EqualError(t, err, "invalid token audience")
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", "ecobazar-api", "ecobazar-clients")

	_, err := m.ParseToken("not.a.token")
	assert.Error(t, err)
}
