package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "fieldservice/pkg/errors"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, 24*time.Hour, zap.NewNop())

	pair, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessID, pair.RefreshID)

	access, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), access.UserID)
	assert.False(t, access.IsRefreshToken)
	assert.Equal(t, pair.AccessID, access.ID)

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refresh.IsRefreshToken)
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour, zap.NewNop()).(*jwtService)
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	pair, err := svc.GenerateTokens(1)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer := NewJWTService("one", time.Hour, time.Hour, zap.NewNop())
	verifier := NewJWTService("two", time.Hour, time.Hour, zap.NewNop())

	pair, err := issuer.GenerateTokens(7)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
