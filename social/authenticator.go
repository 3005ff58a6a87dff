package social

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-jobportal"
	"golang.org/x/oauth2"
)

const (
	roleSelectionPath = "/auth/role-selection"
	successPath       = "/auth/success"
)

// Authenticator runs the authorization code flow against the registered
// providers and turns the returned identity into a local principal and a
// bearer token.
type Authenticator struct {
	providers   map[string]Provider
	states      StateManager
	resolver    *auth.IdentityResolver
	machine     auth.RoleStateMachine
	tokens      *auth.TokenService
	frontendURL string
	logger      auth.Logger
	sink        auth.ActivitySink
	linker      AccountLinker
}

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithProvider registers a provider under its Name.
func WithProvider(provider Provider) Option {
	return func(a *Authenticator) {
		if provider == nil {
			return
		}
		a.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) Option {
	return func(a *Authenticator) {
		if sm != nil {
			a.states = sm
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithActivitySink sets the activity sink for audit logging.
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(a *Authenticator) {
		a.sink = sink
	}
}

// NewAuthenticator creates the external login flow. frontendURL is the
// base the callback redirects to once a token has been issued.
func NewAuthenticator(
	resolver *auth.IdentityResolver,
	machine auth.RoleStateMachine,
	tokens *auth.TokenService,
	states StateManager,
	frontendURL string,
	opts ...Option,
) *Authenticator {
	a := &Authenticator{
		providers:   make(map[string]Provider),
		states:      states,
		resolver:    resolver,
		machine:     machine,
		tokens:      tokens,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Providers lists the registered provider names in sorted order.
func (a *Authenticator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult is the outcome of a completed handshake.
type AuthResult struct {
	Principal      *auth.Principal
	Token          *auth.Token
	Provider       string
	NeedsSelection bool
	// RedirectURL points at the frontend page that consumes Token.
	RedirectURL string
}

// BeginAuth starts the authorization code flow with PKCE (S256). The
// verifier travels inside the encrypted state.
func (a *Authenticator) BeginAuth(ctx context.Context, providerName string) (*AuthRedirect, error) {
	provider, err := a.provider(providerName)
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	stateToken, err := a.states.Encode(&OAuthState{
		Provider:     provider.Name(),
		CodeVerifier: verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	a.logger.Debug("oauth2 authorization started", "provider", provider.Name())

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(stateToken, oauth2.S256ChallengeOption(verifier)),
		State:    stateToken,
		Provider: provider.Name(),
	}, nil
}

// CompleteAuth validates the state, exchanges the code, resolves the
// identity and issues a token. Principals without a role are sent to the
// role selection page.
func (a *Authenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	provider, err := a.provider(providerName)
	if err != nil {
		return nil, err
	}

	state, err := a.states.Decode(stateToken)
	if err != nil {
		a.logger.Warn("oauth2 state rejected", "provider", provider.Name(), "error", err)
		return nil, err
	}
	if state.Provider != provider.Name() {
		return nil, auth.WithDetails(ErrInvalidState, nil, map[string]any{
			"expected": state.Provider,
			"provider": provider.Name(),
		})
	}

	if strings.TrimSpace(code) == "" {
		return nil, auth.WithDetails(ErrAuthorizationFailed, nil, map[string]any{
			"provider": provider.Name(),
			"reason":   "missing authorization code",
		})
	}

	token, err := provider.Exchange(ctx, code, oauth2.VerifierOption(state.CodeVerifier))
	if err != nil {
		a.logger.Warn("oauth2 token exchange failed", "provider", provider.Name(), "error", err)
		return nil, wrapProviderError(ErrTokenExchangeFailed, provider.Name(), "token_exchange", err)
	}

	attrs, err := provider.UserInfo(ctx, token)
	if err != nil {
		a.logger.Warn("oauth2 user info failed", "provider", provider.Name(), "error", err)
		return nil, wrapProviderError(ErrUserInfoFailed, provider.Name(), "user_info", err)
	}

	principal, err := a.resolver.Resolve(ctx, attrs)
	if err != nil {
		return nil, err
	}

	a.link(ctx, provider.Name(), principal.ID, principal.Email, attrs)

	issued, err := a.tokens.Issue(principal)
	if err != nil {
		return nil, err
	}

	needsSelection := a.machine.NeedsSelection(principal)
	path := successPath
	if needsSelection {
		path = roleSelectionPath
	}

	auth.RecordActivity(ctx, a.sink, a.logger, auth.ActivityEvent{
		EventType: auth.ActivityEventExternalLogin,
		Actor:     auth.ActorRef{ID: principal.Email, Type: "principal"},
		Subject:   principal.Email,
		Metadata: map[string]any{
			"provider":        provider.Name(),
			"needs_selection": needsSelection,
		},
	})

	return &AuthResult{
		Principal:      principal,
		Token:          issued,
		Provider:       provider.Name(),
		NeedsSelection: needsSelection,
		RedirectURL:    a.frontendURL + path + "?token=" + url.QueryEscape(issued.AccessToken),
	}, nil
}

func (a *Authenticator) provider(name string) (Provider, error) {
	provider, ok := a.providers[strings.ToLower(name)]
	if !ok {
		return nil, auth.WithDetails(ErrProviderNotFound, nil, map[string]any{"provider": name})
	}
	return provider, nil
}
