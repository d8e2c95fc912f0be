package service_test

import (
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/service"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestTokenService_ValidateToken(t *testing.T) {
	cfg := testutil.TestConfig()
	tokens := service.NewTokenService(cfg)
	secret := []byte(cfg.JWTSecret)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   string
		want    int
		wantErr bool
	}{
		{
			name:  "valid token",
			token: testutil.GenerateToken(t, cfg.JWTSecret, 42),
			want:  42,
		},
		{
			name:    "wrong secret",
			token:   testutil.GenerateToken(t, "other", 42),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}),
			wantErr: true,
		},
		{
			name:    "non-numeric subject",
			token:   sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "alice", ExpiresAt: future}),
			wantErr: true,
		},
		{
			name:    "zero subject",
			token:   sign(t, jwt.SigningMethodHS256, secret, jwt.RegisteredClaims{Subject: "0", ExpiresAt: future}),
			wantErr: true,
		},
		{
			name:    "unsigned",
			token:   sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{Subject: "42", ExpiresAt: future}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokens.ValidateToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, service.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
