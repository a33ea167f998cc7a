package app

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenStale inspects a held media token's expiry without verifying the
// signature (the client has no key; the media server does the real check).
// Media tokens are single-use and short-lived, so anything expired or
// unparseable is discarded and a fresh one requested.
func tokenStale(raw string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
