package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService(testSecret, 0)
	require.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	admin := RoleAdmin

	tests := []struct {
		name string
		role *uint
	}{
		{name: "without role", role: nil},
		{name: "with admin role", role: &admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.NewToken(userID, tt.role)
			require.NoError(t, err)

			p, err := svc.Validate(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, userID, p.UserID)
			assert.True(t, p.Authenticated())
			assert.Equal(t, tt.role != nil, p.IsAdmin())
		})
	}
}

func TestTokenService_ValidateFailures(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	other, err := NewTokenService(strings.Repeat("x", 32), time.Hour)
	require.NoError(t, err)
	foreign, err := other.NewToken(uuid.New(), nil)
	require.NoError(t, err)

	expiring, err := NewTokenService(testSecret, time.Minute)
	require.NoError(t, err)
	expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiring.NewToken(uuid.New(), nil)
	require.NoError(t, err)

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: uuid.NewString()})
	unsigned, err := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	badSubjectToken, err := badSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrMissingToken},
		{name: "garbage", token: "garbage", wantErr: ErrInvalidToken},
		{name: "other secret", token: foreign, wantErr: ErrInvalidToken},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "alg none", token: unsigned, wantErr: ErrInvalidToken},
		{name: "subject not uuid", token: badSubjectToken, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Validate(context.Background(), tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, p.Authenticated())
		})
	}
}

func TestPrincipal_CanActFor(t *testing.T) {
	owner := uuid.New()
	admin := RoleAdmin
	other := uint(7)

	assert.True(t, Principal{UserID: owner}.CanActFor(owner))
	assert.False(t, Principal{UserID: uuid.New()}.CanActFor(owner))
	assert.True(t, Principal{UserID: uuid.New(), Role: &admin}.CanActFor(owner))
	assert.False(t, Principal{UserID: uuid.New(), Role: &other}.CanActFor(owner))
	assert.False(t, Anonymous.CanActFor(owner))
}
