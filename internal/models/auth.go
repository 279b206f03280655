package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the identity provider's access token payload. The subject is the
// user id.
type JWTClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's id.
func (c *JWTClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
