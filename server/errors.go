package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/goliatone/go-jobportal/middleware/csrf"
	"github.com/goliatone/go-jobportal/social"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

var errorTitles = map[string]string{
	auth.TextCodeDuplicateAction:           "Duplicate Application",
	auth.TextCodeUnauthorizedAccess:        "Unauthorized Job Access",
	jobs.TextCodeJobNotFound:               "Job Not Found",
	auth.TextCodePrincipalExists:           "Duplicate Email",
	auth.TextCodeInvalidCredentials:        "Authentication Failed",
	auth.TextCodeUnauthenticated:           "Unauthorized",
	auth.TextCodeTokenInvalid:              "Unauthorized",
	auth.TextCodeTokenExpired:              "Unauthorized",
	auth.TextCodeForbidden:                 "Access Denied",
	auth.TextCodeInvalidRole:               "Invalid Role",
	auth.TextCodeInvalidTransition:         "Invalid Role",
	auth.TextCodeValidation:                "Validation Failed",
	auth.TextCodePrincipalNotFound:         "User Not Found",
	auth.TextCodeSelectionPrincipalMissing: "User Not Found",
	auth.TextCodeTooManyRequests:           "Too Many Requests",
	auth.TextCodeIdentityAttribute:         "OAuth2 Authentication Failed",
	social.TextCodeInvalidState:            "OAuth2 Authentication Failed",
	social.TextCodeStateExpired:            "OAuth2 Authentication Failed",
	social.TextCodeAuthorizationFail:       "OAuth2 Authentication Failed",
	social.TextCodeTokenExchangeFail:       "OAuth2 Authentication Failed",
	social.TextCodeUserInfoFail:            "OAuth2 Authentication Failed",
	social.TextCodeProviderNotFound:        "Unknown Provider",
	csrf.TextCodeTokenMissing:              "Invalid CSRF Token",
	csrf.TextCodeTokenMismatch:             "Invalid CSRF Token",
	csrf.TextCodeTokenExpired:              "Invalid CSRF Token",
}

// NewErrorHandler renders every error as an ErrorResponse. Errors without
// a known HTTP code become a 500 with a generic message.
func NewErrorHandler(logger auth.Logger, now func() time.Time) fiber.ErrorHandler {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	if now == nil {
		now = time.Now
	}

	return func(c *fiber.Ctx, err error) error {
		status, title, message := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}

		return c.Status(status).JSON(ErrorResponse{
			Timestamp: now().UTC(),
			Status:    status,
			Error:     title,
			Message:   message,
			Path:      c.Path(),
		})
	}
}

func classify(err error) (int, string, string) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil && rich.Code >= 400 && rich.Code < 500 {
		title, ok := errorTitles[rich.TextCode]
		if !ok {
			title = http.StatusText(rich.Code)
		}
		return rich.Code, title, rich.Message
	}

	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < http.StatusInternalServerError {
		return fe.Code, http.StatusText(fe.Code), fe.Message
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), unexpectedErrorMessage
}
