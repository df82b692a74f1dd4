package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenPairCarriesClaims(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.GenerateTokenPair(TokenSubject{UserID: 42, Plan: "pro", MustChangePassword: true})
	require.NoError(t, err)

	access, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, uint(42), access.UserID)
	require.Equal(t, TokenTypeAccess, access.TokenType)
	require.Equal(t, "pro", access.Plan)
	require.True(t, access.MustChangePassword)
	require.Empty(t, access.ID)

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, TokenTypeRefresh, refresh.TokenType)
	require.NotEmpty(t, refresh.ID)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair(TokenSubject{UserID: 1, Plan: "free"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateToken(pair.AccessToken)
	require.Error(t, err)

	_, err = svc.ValidateToken(pair.RefreshToken)
	require.NoError(t, err)
}

func TestForeignKeyRejected(t *testing.T) {
	a, b := newTestService(t), newTestService(t)
	pair, err := a.GenerateTokenPair(TokenSubject{UserID: 1, Plan: "free"})
	require.NoError(t, err)
	_, err = b.ValidateToken(pair.AccessToken)
	require.Error(t, err)
	_, err = a.ValidateToken("")
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, CheckPasswordHash("correct horse", hash))
	require.False(t, CheckPasswordHash("wrong horse", hash))
}

func TestOneTimePassword(t *testing.T) {
	p, err := GenerateOneTimePassword(4)
	require.NoError(t, err)
	require.Len(t, p, MinPasswordLength)

	q, err := GenerateOneTimePassword(16)
	require.NoError(t, err)
	require.Len(t, q, 16)
	require.NotEqual(t, p, q)
}
