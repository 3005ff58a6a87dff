package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Origin records how a principal entered the system.
type Origin string

const (
	// OriginLocal principals registered with a password
	OriginLocal Origin = "LOCAL"
	// OriginExternal principals were created from an identity provider login
	OriginExternal Origin = "EXTERNAL"
)

// RoleState is the role-selection state of a principal.
type RoleState string

const (
	RoleStateNone     RoleState = "NO_ROLE"
	RoleStateAssigned RoleState = "ROLE_ASSIGNED"
)

// Principal is the single account model for local and external users.
// Email is the natural key and is stored normalized.
type Principal struct {
	bun.BaseModel `bun:"table:principals,alias:prn"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull" json:"email"`
	Name          string     `bun:"name,notnull" json:"name"`
	PasswordHash  string     `bun:"password_hash,nullzero" json:"-"`
	Role          Role       `bun:"role,nullzero" json:"role,omitempty"`
	Origin        Origin     `bun:"origin,notnull" json:"origin"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoleState derives the tagged role state from the stored role.
func (p *Principal) RoleState() RoleState {
	if p == nil || p.Role == "" {
		return RoleStateNone
	}
	return RoleStateAssigned
}

// HasCredential reports whether the principal can log in with a password.
func (p *Principal) HasCredential() bool {
	return p != nil && p.PasswordHash != ""
}

// Authorities returns the granted authorities, empty when no role is set.
func (p *Principal) Authorities() []string {
	if p == nil || p.Role == "" {
		return []string{}
	}
	return []string{p.Role.Authority()}
}

// NormalizeEmail lower-cases and trims an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
