package social

import (
	"net/http"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the authorization and callback routes.
type HTTPController struct {
	authenticator *Authenticator
	config        HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// AuthorizationPrefix starts the flow (default: "/oauth2/authorization")
	AuthorizationPrefix string

	// CallbackPrefix receives the provider redirect (default: "/login/oauth2/code")
	CallbackPrefix string
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(authenticator *Authenticator, cfg HTTPConfig) *HTTPController {
	if cfg.AuthorizationPrefix == "" {
		cfg.AuthorizationPrefix = "/oauth2/authorization"
	}
	if cfg.CallbackPrefix == "" {
		cfg.CallbackPrefix = "/login/oauth2/code"
	}
	return &HTTPController{authenticator: authenticator, config: cfg}
}

// RegisterRoutes mounts the controller on group.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get(c.config.AuthorizationPrefix+"/:provider", c.Authorize)
	group.Get(c.config.CallbackPrefix+"/:provider", c.Callback)
}

// Authorize redirects the browser to the provider.
func (c *HTTPController) Authorize(ctx router.Context) error {
	redirect, err := c.authenticator.BeginAuth(ctx.Context(), ctx.Param("provider"))
	if err != nil {
		return err
	}
	return ctx.Redirect(redirect.URL, http.StatusFound)
}

// Callback completes the handshake and redirects to the frontend with the
// issued token.
func (c *HTTPController) Callback(ctx router.Context) error {
	provider := ctx.Param("provider")

	if reason := ctx.Query("error", ""); reason != "" {
		return auth.WithDetails(ErrAuthorizationFailed, nil, map[string]any{
			"provider":    provider,
			"error":       reason,
			"description": ctx.Query("error_description", ""),
		})
	}

	result, err := c.authenticator.CompleteAuth(ctx.Context(), provider, ctx.Query("code", ""), ctx.Query("state", ""))
	if err != nil {
		return err
	}
	return ctx.Redirect(result.RedirectURL, http.StatusFound)
}
