package social

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Provider is an external identity provider reachable through the
// authorization code flow. UserInfo yields the attribute map handed to
// auth.IdentityResolver.
type Provider interface {
	// Name returns the provider identifier used in routes, e.g. "github".
	Name() string

	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	UserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error)
}

// ClientConfig holds the registration details shared by every provider.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// clientContext makes oauth2 and go-oidc use the configured client.
func clientContext(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}
