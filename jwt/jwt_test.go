package jwt

import (
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueVerifyAndInspect(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	iss, err := NewIssuer(IssuerConfig{Secret: testSecret, AccessTTL: time.Minute, Issuer: "gym-api", Now: func() time.Time { return now }})
	require.NoError(t, err)

	token, err := iss.Issue("u1", "admin")
	require.NoError(t, err)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "admin", claims.UserType)

	exp, ok := Expiry(token)
	require.True(t, ok)
	require.Equal(t, now.Add(time.Minute).Unix(), exp.Unix())

	require.False(t, Expired(token, now, 0))
	require.True(t, Expired(token, now.Add(2*time.Minute), 0))
	require.False(t, Expired(token, now.Add(61*time.Second), 5*time.Second))
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := now
	iss, err := NewIssuer(IssuerConfig{Secret: testSecret, AccessTTL: time.Minute, Now: func() time.Time { return clock }})
	require.NoError(t, err)

	token, err := iss.Issue("u1", "member")
	require.NoError(t, err)

	clock = now.Add(time.Hour)
	_, err = iss.Verify(token)
	require.ErrorIs(t, err, gjwt.ErrTokenExpired)

	other, err := NewIssuer(IssuerConfig{Secret: []byte("another-secret-another-secret!!"), AccessTTL: time.Minute, Now: func() time.Time { return now }})
	require.NoError(t, err)
	foreign, err := other.Issue("u1", "member")
	require.NoError(t, err)
	clock = now
	_, err = iss.Verify(foreign)
	require.Error(t, err)
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := Inspect("opaque-session-token")
	require.ErrorIs(t, err, ErrNotJWT)

	_, ok := Expiry("opaque-session-token")
	require.False(t, ok)
	require.False(t, Expired("opaque-session-token", time.Now(), 0))
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{Secret: []byte("short"), AccessTTL: time.Minute})
	require.Error(t, err)
	_, err = NewIssuer(IssuerConfig{Secret: testSecret})
	require.Error(t, err)
	_, err = NewIssuer(IssuerConfig{Secret: testSecret, AccessTTL: time.Minute, Leeway: time.Hour})
	require.Error(t, err)
}
