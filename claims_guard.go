package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type immutableClaimsSnapshot struct {
	subject      string
	role         Role
	roleSelected bool
	issuedAt     time.Time
	hasIssuedAt  bool
	expiresAt    time.Time
	hasExpires   bool
}

func captureImmutableClaims(claims *TokenClaims) immutableClaimsSnapshot {
	snap := immutableClaimsSnapshot{
		subject:      claims.Subject,
		role:         claims.Role,
		roleSelected: claims.RoleSelected,
	}

	if claims.IssuedAt != nil {
		snap.issuedAt = claims.IssuedAt.Time
		snap.hasIssuedAt = true
	}

	if claims.ExpiresAt != nil {
		snap.expiresAt = claims.ExpiresAt.Time
		snap.hasExpires = true
	}

	return snap
}

func (snap immutableClaimsSnapshot) validate(claims *TokenClaims) error {
	if claims.Subject != snap.subject {
		return immutableClaimViolation("sub")
	}

	if claims.Role != snap.role {
		return immutableClaimViolation("role")
	}

	if claims.RoleSelected != snap.roleSelected {
		return immutableClaimViolation("role_selected")
	}

	if err := compareNumericDate(claims.IssuedAt, snap.issuedAt, snap.hasIssuedAt, "iat"); err != nil {
		return err
	}

	return compareNumericDate(claims.ExpiresAt, snap.expiresAt, snap.hasExpires, "exp")
}

func compareNumericDate(date *jwt.NumericDate, expected time.Time, expectedSet bool, field string) error {
	if !expectedSet {
		if date != nil {
			return immutableClaimViolation(field)
		}
		return nil
	}

	if date == nil || !date.Time.Equal(expected) {
		return immutableClaimViolation(field)
	}

	return nil
}

func immutableClaimViolation(field string) error {
	return WithDetails(ErrImmutableClaimMutation, nil, map[string]any{"claim": field})
}
