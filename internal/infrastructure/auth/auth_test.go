package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newIssuer(t *testing.T, secret string) *JWTIssuer {
	t.Helper()
	issuer, err := NewJWTIssuer(JWTConfig{Secret: secret})
	require.NoError(t, err)
	return issuer
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer := newIssuer(t, "s3cret")
	assert.Equal(t, 8*time.Hour, issuer.TTL())

	token, expiresAt, err := issuer.Issue(port.SessionClaims{UserID: 42, Email: "a@example.com", Role: workflow.RoleTravelAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), expiresAt, time.Minute)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, workflow.RoleTravelAdmin, claims.Role)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestJWTIssuer_Rejects(t *testing.T) {
	issuer := newIssuer(t, "s3cret")
	valid, _, err := issuer.Issue(port.SessionClaims{UserID: 1, Role: workflow.RoleEmployee})
	require.NoError(t, err)

	expiredIssuer := newIssuer(t, "s3cret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-9 * time.Hour) }
	expired, _, err := expiredIssuer.Issue(port.SessionClaims{UserID: 1})
	require.NoError(t, err)

	otherSecret, _, err := newIssuer(t, "other").Issue(port.SessionClaims{UserID: 1})
	require.NoError(t, err)

	otherAudience, err := NewJWTIssuer(JWTConfig{Secret: "s3cret", Audience: "SomeoneElse"})
	require.NoError(t, err)
	wrongAudience, _, err := otherAudience.Issue(port.SessionClaims{UserID: 1})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    DefaultIssuer,
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not-a-token",
		"tampered":       valid[:len(valid)-2] + "xx",
		"expired":        expired,
		"other secret":   otherSecret,
		"wrong audience": wrongAudience,
		"alg none":       unsigned,
		"empty":          "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(token)
			assert.Error(t, err)
		})
	}
}

func TestNewJWTIssuer_RequiresSecret(t *testing.T) {
	_, err := NewJWTIssuer(JWTConfig{})
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong"))
	assert.Error(t, h.Compare("not-a-hash", "correct horse"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}
