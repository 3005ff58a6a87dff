package auth

import "strings"

// Role is the closed set of job portal roles.
type Role string

const (
	RoleApplicant Role = "APPLICANT"
	RoleEmployer  Role = "EMPLOYER"
)

// authorityPrefix is prepended to a role name to build its authority.
const authorityPrefix = "ROLE_"

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleApplicant, RoleEmployer:
		return true
	default:
		return false
	}
}

// Authority returns the authority string, e.g. ROLE_EMPLOYER.
// The empty role has no authority.
func (r Role) Authority() string {
	if r == "" {
		return ""
	}
	return authorityPrefix + string(r)
}

func (r Role) String() string {
	return string(r)
}

// AvailableRoles returns every selectable role in canonical order.
func AvailableRoles() []Role {
	return []Role{
		RoleApplicant,
		RoleEmployer,
	}
}

// ParseRole parses a role token case-insensitively.
func ParseRole(token string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(token)))
	return role, role.IsValid()
}

// RoleFromAuthority maps ROLE_X back to X.
func RoleFromAuthority(authority string) (Role, bool) {
	if !strings.HasPrefix(authority, authorityPrefix) {
		return "", false
	}
	role := Role(strings.TrimPrefix(authority, authorityPrefix))
	return role, role.IsValid()
}
