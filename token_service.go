package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenTTL is the bearer token lifetime.
const DefaultTokenTTL = time.Hour

// TokenTypeBearer is the token_type of every issued token.
const TokenTypeBearer = "Bearer"

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	store      PrincipalStore
	logger     Logger
	now        func() time.Time
	decorators []ClaimsDecorator
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(ts *TokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. A non positive
// ttl falls back to DefaultTokenTTL.
func NewTokenService(signingKey []byte, ttl time.Duration, store PrincipalStore, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	ts := &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		store:      store,
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// NewTokenServiceFromConfig builds a TokenService from a Config.
func NewTokenServiceFromConfig(cfg Config, store PrincipalStore, opts ...TokenOption) *TokenService {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), store, opts...)
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for p carrying its current role state.
func (ts *TokenService) Issue(p *Principal) (*Token, error) {
	if p == nil || p.Email == "" {
		return nil, goerrors.New("principal must not be empty", goerrors.CategoryInternal)
	}

	expiresAt := ts.now().Add(ts.ttl)
	claims := &TokenClaims{
		Role:         p.Role,
		RoleSelected: p.RoleState() == RoleStateAssigned,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	if err := ts.decorate(p, claims); err != nil {
		ts.logger.Error("claims decorator failed", "email", p.Email, "error", err)
		return nil, err
	}

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  signed,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(ts.ttl / time.Second),
		RoleSelected: claims.RoleSelected,
		ExpiresAt:    claims.ExpiresAtTime(),
	}, nil
}

// SignClaims signs arbitrary claims with the configured key.
func (ts *TokenService) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Parse checks structure, signature and expiry only. It does not touch
// the principal store.
func (ts *TokenService) Parse(raw string) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)

	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, WithDetails(ErrTokenExpired, err, nil)
		}
		return nil, WithDetails(ErrTokenInvalid, err, nil)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, WithDetails(ErrTokenInvalid, nil, map[string]any{"reason": "missing subject"})
	}

	return claims, nil
}

// Verify parses raw and loads the subject principal on every call.
func (ts *TokenService) Verify(ctx context.Context, raw string) (*VerifiedToken, error) {
	claims, err := ts.Parse(raw)
	if err != nil {
		return nil, err
	}

	p, err := ts.store.FindPrincipalByEmail(ctx, claims.Subject)
	if err != nil {
		if IsCode(err, TextCodePrincipalNotFound) {
			ts.logger.Info("token subject no longer exists", "email", claims.Subject)
		}
		return nil, err
	}

	return &VerifiedToken{Claims: claims, Principal: p}, nil
}
