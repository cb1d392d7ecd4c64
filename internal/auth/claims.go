package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims reads subject and expiry out of an access token without
// verifying the signature. Verification is the collaborator's job; locally
// the claims only drive refresh scheduling and display.
func tokenClaims(accessToken string) (userID string, expiresAt time.Time, err error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return "", time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return "", time.Time{}, fmt.Errorf("access token carries no expiry")
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
