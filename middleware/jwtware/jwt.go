package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

const (
	DefaultCallerKey = "caller"
	DefaultClaimsKey = "claims"
)

// Mode selects how much of the token is checked.
type Mode int

const (
	// ModeVerify checks signature and expiry and loads the principal, so
	// authorities reflect the stored role.
	ModeVerify Mode = iota
	// ModeParse checks signature and expiry only. The caller is built from
	// the claims. Used by the role selection endpoints.
	ModeParse
)

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Parse(raw string) (*auth.TokenClaims, error)
	Verify(ctx context.Context, raw string) (*auth.VerifiedToken, error)
}

// ValidationListener is invoked after a token has been validated and
// before the caller is stored.
type ValidationListener func(ctx router.Context, claims *auth.TokenClaims) error

type Config struct {
	// Filter skips the middleware when it returns true.
	Filter func(router.Context) bool
	// SuccessHandler replaces the call to the next handler when set.
	SuccessHandler router.HandlerFunc
	// ErrorHandler defaults to returning the error to the app error handler.
	ErrorHandler router.ErrorHandler
	Tokens       TokenVerifier
	Mode         Mode
	ContextKey   string
	ClaimsKey    string
	// TokenLookup is a comma separated list of source:name pairs, e.g.
	// "header:Authorization,query:token,cookie:jwt".
	TokenLookup         string
	AuthScheme          string
	ValidationListeners []ValidationListener
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			raw, err := ExtractRawToken(ctx, extractors)
			if err != nil {
				return cfg.ErrorHandler(ctx, auth.WithDetails(auth.ErrUnauthenticated, err, nil))
			}

			claims, caller, err := cfg.authenticate(ctx, raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ClaimsKey, claims)
			ctx.Locals(cfg.ContextKey, caller)

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return next(ctx)
		}
	}
}

func (cfg *Config) authenticate(ctx router.Context, raw string) (*auth.TokenClaims, auth.Caller, error) {
	if cfg.Mode == ModeParse {
		claims, err := cfg.Tokens.Parse(raw)
		if err != nil {
			return nil, auth.Anonymous(), err
		}
		return claims, callerFromClaims(claims), nil
	}

	verified, err := cfg.Tokens.Verify(ctx.Context(), raw)
	if err != nil {
		// a token whose subject was deleted no longer authenticates anyone
		if auth.IsCode(err, auth.TextCodePrincipalNotFound) {
			return nil, auth.Anonymous(), auth.WithDetails(auth.ErrUnauthenticated, err, map[string]any{
				"reason": "principal no longer exists",
			})
		}
		return nil, auth.Anonymous(), err
	}
	return verified.Claims, verified.Caller(), nil
}

func callerFromClaims(claims *auth.TokenClaims) auth.Caller {
	caller := auth.Caller{Email: claims.Email(), Role: claims.Role, Authorities: []string{}}
	if a := claims.Role.Authority(); a != "" {
		caller.Authorities = append(caller.Authorities, a)
	}
	return caller
}

// CallerFrom returns the caller stored by the middleware, or the
// anonymous caller.
func CallerFrom(ctx router.Context, key ...string) auth.Caller {
	k := DefaultCallerKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	if caller, ok := ctx.Locals(k).(auth.Caller); ok {
		return caller
	}
	return auth.Anonymous()
}

// ClaimsFrom returns the validated claims stored by the middleware.
func ClaimsFrom(ctx router.Context, key ...string) (*auth.TokenClaims, bool) {
	k := DefaultClaimsKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	claims, ok := ctx.Locals(k).(*auth.TokenClaims)
	return claims, ok && claims != nil
}

func ExtractRawToken(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ router.Context, err error) error {
			return err
		}
	}

	if cfg.Tokens == nil {
		panic("AUTH: JWT middleware configuration: Tokens is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultCallerKey
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = DefaultClaimsKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = auth.TokenTypeBearer
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims *auth.TokenClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := auth.TokenTypeBearer
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:token,param:token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "param":
			extractors = append(extractors, jwtFromParam(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

type JWTExtractor func(ctx router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
