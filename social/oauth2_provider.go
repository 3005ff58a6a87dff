package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
	githubAccept    = "application/vnd.github.v3+json"
)

// OAuth2Config configures a plain OAuth2 provider whose identity comes
// from a JSON user-info endpoint.
type OAuth2Config struct {
	ClientConfig
	Name     string
	Endpoint oauth2.Endpoint
	// UserInfoURL returns a JSON object describing the user.
	UserInfoURL string
	// EmailsURL is queried when the user-info document has no email. It
	// must return a GitHub style list of {email, primary, verified}.
	EmailsURL string
	Accept    string
}

// OAuth2Provider implements Provider on top of golang.org/x/oauth2.
type OAuth2Provider struct {
	name   string
	oauth  *oauth2.Config
	cfg    OAuth2Config
	client *http.Client
}

// NewOAuth2Provider returns a provider for cfg.
func NewOAuth2Provider(cfg OAuth2Config) *OAuth2Provider {
	if cfg.Accept == "" {
		cfg.Accept = "application/json"
	}
	return &OAuth2Provider{
		name: strings.ToLower(cfg.Name),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		cfg:    cfg,
		client: cfg.httpClient(),
	}
}

// NewGitHubProvider returns an OAuth2Provider preconfigured for GitHub.
func NewGitHubProvider(cfg ClientConfig) *OAuth2Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"read:user", "user:email"}
	}
	return NewOAuth2Provider(OAuth2Config{
		ClientConfig: cfg,
		Name:         "github",
		Endpoint:     github.Endpoint,
		UserInfoURL:  githubUserURL,
		EmailsURL:    githubEmailsURL,
		Accept:       githubAccept,
	})
}

// Name implements Provider.
func (p *OAuth2Provider) Name() string {
	return p.name
}

// AuthCodeURL implements Provider.
func (p *OAuth2Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange implements Provider.
func (p *OAuth2Provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(clientContext(ctx, p.client), code, opts...)
	if err != nil {
		return nil, fromRetrieveError(p.name, err)
	}
	return token, nil
}

// UserInfo implements Provider. When the document carries no email the
// primary address from EmailsURL is used.
func (p *OAuth2Provider) UserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	attrs := map[string]any{}
	if err := p.getJSON(ctx, "user_info", p.cfg.UserInfoURL, token, &attrs); err != nil {
		return nil, err
	}

	if email, _ := attrs["email"].(string); strings.TrimSpace(email) == "" && p.cfg.EmailsURL != "" {
		email, verified, err := p.fetchPrimaryEmail(ctx, token)
		if err != nil {
			return nil, err
		}
		attrs["email"] = email
		attrs["email_verified"] = verified
	}

	return attrs, nil
}

type emailEntry struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *OAuth2Provider) fetchPrimaryEmail(ctx context.Context, token *oauth2.Token) (string, bool, error) {
	var emails []emailEntry
	if err := p.getJSON(ctx, "emails", p.cfg.EmailsURL, token, &emails); err != nil {
		return "", false, err
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}

	return "", false, providerError(p.name, "emails", http.StatusOK, "email_not_found", "no valid email found", nil)
}

func (p *OAuth2Provider) getJSON(ctx context.Context, operation, url string, token *oauth2.Token, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", p.cfg.Accept)

	resp, err := p.client.Do(req)
	if err != nil {
		return providerError(p.name, operation, 0, "", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return providerError(p.name, operation, resp.StatusCode, "", apiErrorMessage(body), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return providerError(p.name, operation, resp.StatusCode, "invalid_response", "failed to decode response", err)
	}
	return nil
}

type apiError struct {
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func apiErrorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.ErrorDescription != "" {
			return apiErr.ErrorDescription
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "request failed"
	}
	return msg
}
