package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-server/models"
)

func TestJWTRoundTrip(t *testing.T) {
	js := NewJWTService("test-secret", time.Hour)

	token, expiresIn, err := js.GenerateAccessToken(12, models.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := js.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "provider", claims.Role)
	assert.Equal(t, "12", claims.Subject)
}

func TestJWTRejectsForeignAndExpiredTokens(t *testing.T) {
	token, _, err := NewJWTService("other", time.Hour).GenerateAccessToken(1, models.RoleCustomer)
	require.NoError(t, err)
	_, err = NewJWTService("test-secret", time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)

	expired, _, err := NewJWTService("test-secret", -time.Minute).GenerateAccessToken(1, models.RoleCustomer)
	require.NoError(t, err)
	_, err = NewJWTService("test-secret", time.Hour).ValidateAccessToken(expired)
	assert.Error(t, err)
}

func TestJWTRequiresUserAndRole(t *testing.T) {
	js := NewJWTService("test-secret", time.Hour)
	_, _, err := js.GenerateAccessToken(0, models.RoleCustomer)
	assert.Error(t, err)
	_, _, err = js.GenerateAccessToken(1, models.Role("guest"))
	assert.Error(t, err)
}
