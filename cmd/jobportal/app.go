package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/config"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/goliatone/go-jobportal/repository"
	"github.com/goliatone/go-jobportal/repository/migrations"
	"github.com/goliatone/go-jobportal/server"
	"github.com/goliatone/go-jobportal/social"
	"github.com/uptrace/bun"
)

// App holds the wired services of a running portal.
type App struct {
	config *config.Config
	logger auth.Logger
	db     *bun.DB
	repo   *repository.Manager
	sink   auth.ActivitySink
	deps   server.Dependencies
	srv    *server.Server
}

func newApp(cfg *config.Config) (*App, error) {
	logger, err := auth.NewZerologLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &App{
		config: cfg,
		logger: logger,
		sink:   auth.NewLoggerActivitySink(logger),
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	return repository.Close(a.db)
}

// WithPersistence opens the database and, when enabled, applies pending
// migrations.
func WithPersistence(ctx context.Context, a *App) error {
	db, err := repository.Open(ctx, a.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	if a.config.Database.AutoMigrate {
		group, err := migrations.Migrate(ctx, db)
		if err != nil {
			return err
		}
		if group.ID != 0 {
			a.logger.Info("applied migrations", "group", group.ID)
		}
	}

	a.repo = repository.NewManager(db)
	if err := a.repo.Validate(); err != nil {
		return err
	}
	a.sink = auth.MultiActivitySink(a.sink, a.repo.Activity())
	return nil
}

// WithServices builds the identity, role and job services.
func WithServices(ctx context.Context, a *App) error {
	principals := a.repo.Principals()

	tokens := auth.NewTokenServiceFromConfig(a.config, principals,
		auth.WithTokenLogger(a.logger),
		auth.WithClaimsDecorator(auth.ProfileClaims()),
	)
	machine := auth.NewRoleStateMachine(principals,
		auth.WithStateMachineLogger(a.logger),
		auth.WithStateMachineActivitySink(a.sink),
	)

	guard, err := auth.NewGuard(
		auth.WithGuardLogger(a.logger),
		auth.WithGuardActivitySink(a.sink),
	)
	if err != nil {
		return fmt.Errorf("failed to build guard: %w", err)
	}

	hasher := auth.NewBcryptHasher()
	if a.config.Auth.BcryptCost > 0 {
		hasher.Cost = a.config.Auth.BcryptCost
	}

	a.deps = server.Dependencies{
		Authenticator: auth.NewAuthenticator(principals, tokens,
			auth.WithPasswordAuthenticator(hasher),
			auth.WithAuthenticatorLogger(a.logger),
			auth.WithAuthenticatorActivitySink(a.sink),
			auth.WithAuthenticatorTransactor(a.repo),
		),
		Tokens:        tokens,
		RoleSelection: auth.NewRoleSelection(principals, machine, tokens, a.logger),
		Jobs: jobs.NewService(a.repo.Jobs(), a.repo.Applications(), principals, guard,
			jobs.WithLogger(a.logger),
			jobs.WithActivitySink(a.sink),
		),
		Logger: a.logger,
	}

	external, err := newSocialAuthenticator(ctx, a, tokens, machine)
	if err != nil {
		return err
	}
	a.deps.Social = external
	return nil
}

// newSocialAuthenticator returns nil when no provider is configured.
func newSocialAuthenticator(ctx context.Context, a *App, tokens *auth.TokenService, machine auth.RoleStateMachine) (*social.Authenticator, error) {
	cfg := a.config.OAuth2
	var providers []social.Option

	if cfg.Google.Enabled() {
		google, err := social.NewOIDCProvider(ctx, "google", cfg.Google.IssuerURL,
			a.config.ClientConfig("google", cfg.Google))
		if err != nil {
			return nil, fmt.Errorf("failed to configure google provider: %w", err)
		}
		providers = append(providers, social.WithProvider(google))
	}

	if cfg.GitHub.Enabled() {
		providers = append(providers, social.WithProvider(social.NewGitHubProvider(a.config.ClientConfig("github", cfg.GitHub))))
	}

	if len(providers) == 0 {
		a.logger.Info("no oauth2 providers configured")
		return nil, nil
	}

	opts := append(providers,
		social.WithLogger(a.logger),
		social.WithActivitySink(a.sink),
		social.WithAccountLinker(a.repo.LinkedAccounts()),
	)

	resolver := auth.NewIdentityResolver(a.repo.Principals(),
		auth.WithResolverLogger(a.logger),
		auth.WithResolverActivitySink(a.sink),
	)
	states := social.NewStateManagerFromSecret(a.config.Auth.StateSecret, a.config.Auth.StateTTL)

	authenticator := social.NewAuthenticator(resolver, machine, tokens, states, a.config.Auth.FrontendURL, opts...)
	a.logger.Info("oauth2 providers configured", "providers", authenticator.Providers())
	return authenticator, nil
}

// WithHTTPServer mounts the routes over the wired services.
func WithHTTPServer(_ context.Context, a *App) error {
	a.srv = server.New(a.deps, a.config.HTTP())
	return nil
}
