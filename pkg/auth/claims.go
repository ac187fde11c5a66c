package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the backend-issued access token. The subject is the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user id carried in the subject claim.
func (c *AccessTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
