package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodePrincipalNotFound  = "PRINCIPAL_NOT_FOUND"
	TextCodePrincipalExists    = "DUPLICATE_EMAIL"
	TextCodeIdentityAttribute  = "IDENTITY_ATTRIBUTE_MISSING"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeUnauthorizedAccess = "UNAUTHORIZED_ACCESS"
	TextCodeDuplicateAction    = "DUPLICATE_ACTION"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeInvalidTransition  = "INVALID_ROLE_TRANSITION"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrUnauthenticated is returned when a guarded operation has no caller.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid covers malformed tokens, bad signatures and wrong algorithms.
var ErrTokenInvalid = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned once the current time reaches exp.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrPrincipalNotFound is returned when no principal matches an email.
var ErrPrincipalNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodePrincipalNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrPrincipalExists is returned when an email is already registered.
var ErrPrincipalExists = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodePrincipalExists).
	WithCode(goerrors.CodeConflict)

// ErrIdentityAttribute is returned when provider attributes carry no email-like key.
var ErrIdentityAttribute = goerrors.New("email not found from OAuth2 provider", goerrors.CategoryBadInput).
	WithTextCode(TextCodeIdentityAttribute).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned for role tokens outside the closed set.
var ErrInvalidRole = goerrors.New("invalid role", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned when a role state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid role state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrForbidden is returned when the caller lacks the required role.
var ErrForbidden = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrUnauthorizedAccess is returned when the caller does not own the resource.
var ErrUnauthorizedAccess = goerrors.New("you are not allowed to access this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorizedAccess).
	WithCode(goerrors.CodeConflict)

// ErrDuplicateAction is returned when an actor repeats a once-only action.
var ErrDuplicateAction = goerrors.New("action already performed", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAction).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned by local login for any credential mismatch.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyRequests is returned by rate limited endpoints.
var ErrTooManyRequests = goerrors.New("too many requests", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyRequests).
	WithCode(http.StatusTooManyRequests)

// ErrValidation wraps payload validation failures.
var ErrValidation = goerrors.New("validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// IsCode reports whether err carries the given text code.
func IsCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.TextCode == textCode
	}
	return false
}

// WithDetails clones a sentinel, sets its source and attaches metadata.
// Sentinels themselves are never mutated.
func WithDetails(base *goerrors.Error, source error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// ErrImmutableClaimMutation is returned when a claims decorator changes an
// identity or role claim.
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(goerrors.CodeInternal)
