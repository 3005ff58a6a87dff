package auth

// ClaimsDecorator adds extension claims before a token is signed. Only
// Metadata may change; sub, exp, role and role_selected are checked after
// every decorator runs.
type ClaimsDecorator interface {
	Decorate(p *Principal, claims *TokenClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(p *Principal, claims *TokenClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(p *Principal, claims *TokenClaims) error {
	if f == nil {
		return nil
	}
	return f(p, claims)
}

// WithClaimsDecorator appends decorators run in order on every Issue.
func WithClaimsDecorator(decorators ...ClaimsDecorator) TokenOption {
	return func(ts *TokenService) {
		for _, d := range decorators {
			if d != nil {
				ts.decorators = append(ts.decorators, d)
			}
		}
	}
}

// ProfileClaims puts the display name and origin in metadata so a client
// can render the signed-in user without another request.
func ProfileClaims() ClaimsDecorator {
	return ClaimsDecoratorFunc(func(p *Principal, claims *TokenClaims) error {
		if claims.Metadata == nil {
			claims.Metadata = map[string]any{}
		}
		if p.Name != "" {
			claims.Metadata["name"] = p.Name
		}
		if p.Origin != "" {
			claims.Metadata["origin"] = string(p.Origin)
		}
		return nil
	})
}

func (ts *TokenService) decorate(p *Principal, claims *TokenClaims) error {
	if len(ts.decorators) == 0 {
		return nil
	}
	snap := captureImmutableClaims(claims)
	for _, d := range ts.decorators {
		if err := d.Decorate(p, claims); err != nil {
			return err
		}
	}
	return snap.validate(claims)
}
