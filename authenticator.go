package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterPayload is the local registration request.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Role, validation.Required),
	)
}

// LoginPayload is the local credential login request.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (l LoginPayload) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Email, validation.Required),
		validation.Field(&l.Password, validation.Required),
	)
}

// Authenticator handles local (password) accounts.
type Authenticator struct {
	store  PrincipalStore
	tx     PrincipalTransactor
	hasher PasswordAuthenticator
	tokens *TokenService
	activityRecorder
}

// AuthenticatorOption customizes an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithPasswordAuthenticator overrides the password hasher.
func WithPasswordAuthenticator(h PasswordAuthenticator) AuthenticatorOption {
	return func(a *Authenticator) {
		if h != nil {
			a.hasher = h
		}
	}
}

// WithAuthenticatorLogger overrides the logger.
func WithAuthenticatorLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthenticatorTransactor makes Register create the principal and
// assign its role inside one transaction.
func WithAuthenticatorTransactor(tx PrincipalTransactor) AuthenticatorOption {
	return func(a *Authenticator) {
		if tx != nil {
			a.tx = tx
		}
	}
}

// WithAuthenticatorActivitySink configures where login events go.
func WithAuthenticatorActivitySink(sink ActivitySink) AuthenticatorOption {
	return func(a *Authenticator) {
		a.sink = normalizeActivitySink(sink)
	}
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store PrincipalStore, tokens *TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:            store,
		hasher:           NewBcryptHasher(),
		tokens:           tokens,
		activityRecorder: newActivityRecorder(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.tx == nil {
		a.tx = PrincipalTransactorFunc(func(ctx context.Context, f func(context.Context, PrincipalStore) error) error {
			return f(ctx, a.store)
		})
	}
	return a
}

// Register creates a LOCAL principal with an explicit role.
func (a *Authenticator) Register(ctx context.Context, payload RegisterPayload) (*Principal, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration")
	default:
	}

	if err := payload.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		return nil, WithDetails(ErrInvalidRole, nil, map[string]any{
			"role":    payload.Role,
			"allowed": AvailableRoles(),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	hash, err := a.hasher.HashPassword(payload.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	email := NormalizeEmail(payload.Email)
	actor := ActorRef{ID: email, Type: "principal"}

	var p *Principal
	err = a.tx.RunPrincipalTx(ctx, func(ctx context.Context, store PrincipalStore) error {
		created, err := store.SavePrincipal(ctx, &Principal{
			Email:        email,
			Name:         getUsername(payload.Username, email),
			PasswordHash: hash,
			Origin:       OriginLocal,
		})
		if err != nil {
			return err
		}

		// events are recorded after commit, the machine stays silent here
		machine := NewRoleStateMachine(store,
			WithStateMachineLogger(a.logger),
			WithStateMachineClock(a.now),
		)
		p, err = machine.AssignRole(ctx, actor, created, role.String())
		return err
	})
	if err != nil {
		if IsCode(err, TextCodePrincipalExists) {
			a.logger.Info("registration rejected, email taken", "email", email)
		}
		return nil, err
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventPrincipalCreated,
		Actor:     actor,
		Subject:   email,
		ToRole:    role,
		Metadata:  map[string]any{"origin": string(OriginLocal)},
	})
	a.record(ctx, ActivityEvent{
		EventType: ActivityEventRoleAssigned,
		Actor:     actor,
		Subject:   email,
		ToRole:    role,
	})

	return p, nil
}

// Login verifies a password and issues a token. Unknown emails and
// wrong passwords produce the same error.
func (a *Authenticator) Login(ctx context.Context, payload LoginPayload) (*Token, error) {
	if err := payload.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	email := NormalizeEmail(payload.Email)
	p, err := a.store.FindPrincipalByEmail(ctx, email)
	if err != nil {
		if IsCode(err, TextCodePrincipalNotFound) {
			a.loginFailed(ctx, email, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !p.HasCredential() {
		a.loginFailed(ctx, email, "no local credential")
		return nil, ErrInvalidCredentials
	}

	if err := a.hasher.ComparePasswordAndHash(payload.Password, p.PasswordHash); err != nil {
		a.loginFailed(ctx, email, "password mismatch")
		if IsCode(err, TextCodeInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := a.tokens.Issue(p)
	if err != nil {
		a.logger.Error("login failed to issue token", "email", email, "error", err)
		return nil, err
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: email, Type: "principal"},
		Subject:   email,
	})

	return token, nil
}

func (a *Authenticator) loginFailed(ctx context.Context, email, reason string) {
	a.logger.Warn("login failed", "email", email, "reason", reason)
	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		Subject:   email,
		Metadata:  map[string]any{"reason": reason},
	})
}

// ValidationError converts ozzo field errors into ErrValidation metadata.
func ValidationError(err error) error {
	meta := map[string]any{}
	if fields, ok := err.(validation.Errors); ok {
		for field, ferr := range fields {
			meta[field] = ferr.Error()
		}
	} else {
		meta["error"] = err.Error()
	}
	return WithDetails(ErrValidation, err, meta)
}

func getUsername(username, email string) string {
	if username = strings.TrimSpace(username); username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	if username == "" {
		return defaultPrincipalName
	}
	return username
}
