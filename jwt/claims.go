package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect when the token is not a parseable JWT.
// Opaque tokens are legal and simply carry no client-readable expiry.
var ErrNotJWT = errors.New("token is not a JWT")

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	UserType string `json:"ut,omitempty"`
	jwt.RegisteredClaims
}

// Inspect parses token without verifying its signature.
func Inspect(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}

// Expiry returns the exp claim of token. ok is false for opaque tokens and
// tokens without exp.
func Expiry(token string) (time.Time, bool) {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether token carries an exp claim that is at or before
// now minus leeway. Opaque tokens are never reported expired.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	exp, ok := Expiry(token)
	if !ok {
		return false
	}
	return !now.Add(-leeway).Before(exp)
}
