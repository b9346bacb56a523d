package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890"

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker(testSecret, 5*time.Minute, 24*time.Hour)

	tests := []struct {
		name   string
		userID int64
		email  string
		typ    TokenType
		ttl    time.Duration
	}{
		{"access token", 1, "user@example.com", AccessToken, 5 * time.Minute},
		{"refresh token", 42, "admin@example.com", RefreshToken, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, issued, err := maker.GenerateToken(tt.userID, tt.email, tt.typ)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.NotEmpty(t, issued.ID)

			claims, err := maker.ParseToken(token, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, issued.ID, claims.ID)
			assert.WithinDuration(t, time.Now().Add(tt.ttl), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_UniqueJTI(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute, time.Hour)

	_, c1, err := maker.GenerateToken(1, "a@b.c", RefreshToken)
	require.NoError(t, err)
	_, c2, err := maker.GenerateToken(1, "a@b.c", RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestJWTMaker_ParseToken_Invalid(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute, time.Hour)

	valid, _, err := maker.GenerateToken(1, "user@example.com", AccessToken)
	require.NoError(t, err)

	expired, _, err := NewJWTMaker(testSecret, -time.Hour, time.Hour).GenerateToken(1, "user@example.com", AccessToken)
	require.NoError(t, err)

	foreign, _, err := NewJWTMaker("wrong_secret_key", time.Minute, time.Hour).GenerateToken(1, "user@example.com", AccessToken)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		typ   TokenType
	}{
		{"empty token", "", AccessToken},
		{"malformed token", "invalid.token.here", AccessToken},
		{"expired token", expired, AccessToken},
		{"wrong secret key", foreign, AccessToken},
		{"tampered token", valid + "tampered", AccessToken},
		{"access used as refresh", valid, RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token, tt.typ)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_WrongTypeError(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute, time.Hour)

	refresh, _, err := maker.GenerateToken(7, "user@example.com", RefreshToken)
	require.NoError(t, err)

	_, err = maker.ParseToken(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}
