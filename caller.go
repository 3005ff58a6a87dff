package auth

// Caller is the authenticated identity behind a request. It is passed
// explicitly to every guarded operation.
type Caller struct {
	Email       string
	Role        Role
	Authorities []string
}

// Anonymous returns the zero caller.
func Anonymous() Caller {
	return Caller{}
}

// CallerFromPrincipal builds a caller from a freshly loaded principal.
func CallerFromPrincipal(p *Principal) Caller {
	if p == nil {
		return Caller{}
	}
	return Caller{
		Email:       p.Email,
		Role:        p.Role,
		Authorities: p.Authorities(),
	}
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.Email != ""
}

// HasAuthority checks for an exact authority such as ROLE_EMPLOYER.
func (c Caller) HasAuthority(authority string) bool {
	for _, a := range c.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// Owns reports whether the caller's email matches ownerEmail.
func (c Caller) Owns(ownerEmail string) bool {
	return c.Authenticated() && NormalizeEmail(ownerEmail) == NormalizeEmail(c.Email)
}
