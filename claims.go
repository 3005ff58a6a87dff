package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the bearer token payload: sub, role (omitted when no
// role is set), role_selected and exp.
type TokenClaims struct {
	Role         Role `json:"role,omitempty"`
	RoleSelected bool `json:"role_selected"`
	// Metadata holds extension claims set by a ClaimsDecorator.
	Metadata map[string]any `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// Email returns the subject, which is the principal email.
func (c *TokenClaims) Email() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// ExpiresAtTime returns the exp claim or the zero time.
func (c *TokenClaims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Token is the response body handed to clients after a successful login
// or role selection.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	RoleSelected bool      `json:"role_selected"`
	ExpiresAt    time.Time `json:"-"`
}

// VerifiedToken is the result of a full verification: valid signature,
// not expired and a principal that still exists.
type VerifiedToken struct {
	Claims    *TokenClaims
	Principal *Principal
}

// Authorities are taken from the principal as stored now, not from the
// role embedded at issue time.
func (v *VerifiedToken) Authorities() []string {
	if v == nil {
		return []string{}
	}
	return v.Principal.Authorities()
}

// Caller returns the explicit caller for guarded operations.
func (v *VerifiedToken) Caller() Caller {
	if v == nil {
		return Anonymous()
	}
	return CallerFromPrincipal(v.Principal)
}
