package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider implements Provider for OpenID Connect issuers. Identity
// comes from the verified ID token, topped up from the userinfo endpoint
// when the token carries no email.
type OIDCProvider struct {
	name     string
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	client   *http.Client
}

// NewOIDCProvider runs discovery against issuerURL. The openid, email and
// profile scopes are requested unless cfg lists its own.
func NewOIDCProvider(ctx context.Context, name, issuerURL string, cfg ClientConfig) (*OIDCProvider, error) {
	client := cfg.httpClient()
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuerURL, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	return &OIDCProvider{
		name:     strings.ToLower(name),
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
		client: client,
	}, nil
}

// NewGoogleProvider returns an OIDCProvider for accounts.google.com.
func NewGoogleProvider(ctx context.Context, cfg ClientConfig) (*OIDCProvider, error) {
	return NewOIDCProvider(ctx, "google", "https://accounts.google.com", cfg)
}

// Name implements Provider.
func (p *OIDCProvider) Name() string {
	return p.name
}

// AuthCodeURL implements Provider.
func (p *OIDCProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange implements Provider.
func (p *OIDCProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(oidc.ClientContext(ctx, p.client), code, opts...)
	if err != nil {
		return nil, fromRetrieveError(p.name, err)
	}
	return token, nil
}

// UserInfo implements Provider.
func (p *OIDCProvider) UserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	ctx = oidc.ClientContext(ctx, p.client)
	attrs := map[string]any{}

	if rawID, ok := token.Extra("id_token").(string); ok && rawID != "" {
		idToken, err := p.verifier.Verify(ctx, rawID)
		if err != nil {
			return nil, providerError(p.name, "id_token", 0, "invalid_id_token", err.Error(), err)
		}
		if err := idToken.Claims(&attrs); err != nil {
			return nil, providerError(p.name, "id_token", 0, "invalid_claims", "failed to decode id token claims", err)
		}
	}

	if email, _ := attrs["email"].(string); email != "" {
		return attrs, nil
	}

	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, providerError(p.name, "user_info", 0, "", "", err)
	}

	extra := map[string]any{}
	if err := info.Claims(&extra); err != nil {
		return nil, providerError(p.name, "user_info", 0, "invalid_response", "failed to decode userinfo claims", err)
	}
	for k, v := range extra {
		if _, exists := attrs[k]; !exists {
			attrs[k] = v
		}
	}
	if info.Email != "" {
		attrs["email"] = info.Email
	}

	return attrs, nil
}
