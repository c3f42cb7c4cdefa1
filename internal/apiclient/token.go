package apiclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from an access token without its key.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
	IsJWT     bool
}

// InspectToken decodes token claims without verifying the signature. The
// result is informational only; an opaque token yields IsJWT false.
func InspectToken(token string) TokenInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}

	info := TokenInfo{IsJWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}

// Preview returns at most the first n characters of token followed by an
// ellipsis, for printing.
func Preview(token string, n int) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
