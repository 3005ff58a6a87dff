package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeTokenMissing  = "CSRF_TOKEN_MISSING"
	TextCodeTokenMismatch = "CSRF_TOKEN_MISMATCH"
	TextCodeTokenExpired  = "CSRF_TOKEN_EXPIRED"
)

// ErrTokenMissing is returned when an unsafe request carries no token.
var ErrTokenMissing = goerrors.New("CSRF token missing", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTokenMissing).
	WithCode(goerrors.CodeForbidden)

var ErrTokenMismatch = goerrors.New("CSRF token mismatch", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTokenMismatch).
	WithCode(goerrors.CodeForbidden)

var ErrTokenExpired = goerrors.New("CSRF token expired", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeForbidden)

// DefaultTokenLength is the nonce length in bytes
const DefaultTokenLength = 32

// DefaultContextKey is the locals key holding the current token
const DefaultContextKey = "csrf_token"

// DefaultCookieName is readable by browser scripts, which echo it back in
// DefaultHeaderName on unsafe requests.
const DefaultCookieName = "XSRF-TOKEN"

// DefaultHeaderName is the header unsafe requests must carry
const DefaultHeaderName = "X-XSRF-TOKEN"

// DefaultFormFieldName is the form field checked after the header
const DefaultFormFieldName = "_csrf"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware. Defaults to SkipBearer.
	Skip func(router.Context) bool

	// TokenLength defines the nonce length in bytes
	TokenLength int

	// ContextKey defines the locals key for the token
	ContextKey string

	CookieName   string
	CookiePath   string
	CookieSecure bool

	HeaderName    string
	FormFieldName string

	// TokenLookup defines where to look for the token
	// Format: "header:X-XSRF-TOKEN,form:_csrf"
	TokenLookup string

	// ErrorHandler defaults to returning the error to the app error handler
	ErrorHandler router.ErrorHandler

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens are valid
	Expiration time.Duration

	// SecureKey signs tokens, at least 32 bytes. Generated when empty,
	// which invalidates tokens on restart.
	SecureKey []byte

	// Now is the clock, for tests
	Now func() time.Time
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) string

// SkipBearer skips requests authenticated with a bearer header, which a
// browser never attaches on its own.
func SkipBearer(ctx router.Context) bool {
	h := ctx.GetString(router.HeaderAuthorization, "")
	return len(h) > 7 && strings.EqualFold(h[:7], "bearer ")
}

// New creates a new CSRF middleware. Tokens are stateless: an HMAC over a
// timestamp, a nonce and the client key.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				token, err := generateToken(ctx, cfg)
				if err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
				ctx.Locals(cfg.ContextKey, token)
				ctx.Cookie(&router.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     cfg.CookiePath,
					Secure:   cfg.CookieSecure,
					HTTPOnly: false,
					SameSite: "Lax",
				})
				return next(ctx)
			}

			if err := validateToken(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			return next(ctx)
		}
	}
}

func generateToken(ctx router.Context, cfg Config) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", cfg.Now().UTC().Unix(), hex.EncodeToString(nonce), clientKey(ctx))
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))

	token := payload + ":" + hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(ctx router.Context, cfg Config) error {
	received := extractToken(ctx, cfg)
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}
	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(strings.Join(parts[:3], ":")))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(clientKey(ctx))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Now().UTC().After(time.Unix(timestamp, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}
	return nil
}

func extractToken(ctx router.Context, cfg Config) string {
	for _, extractor := range getExtractors(cfg.TokenLookup) {
		if token := extractor(ctx); token != "" {
			return token
		}
	}
	return ""
}

// clientKey binds a token to the requesting client
func clientKey(ctx router.Context) string {
	return "ip_" + ctx.IP()
}

func getExtractors(tokenLookup string) []TokenExtractor {
	var extractors []TokenExtractor
	for _, part := range strings.Split(tokenLookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			continue
		}
		switch source {
		case "header":
			extractors = append(extractors, func(ctx router.Context) string { return ctx.GetString(name, "") })
		case "form":
			extractors = append(extractors, func(ctx router.Context) string { return ctx.FormValue(name) })
		}
	}
	return extractors
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Skip == nil {
		cfg.Skip = SkipBearer
	}
	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + cfg.HeaderName + ",form:" + cfg.FormFieldName
	}
	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace}
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ router.Context, err error) error { return err }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)
	return cfg
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
