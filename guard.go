package auth

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed policy/model.conf
var policyModel string

// Operation names a guarded (resource, action) pair.
type Operation struct {
	Resource string
	Action   string
}

func (o Operation) String() string {
	return o.Resource + ":" + o.Action
}

var (
	OpCreateJob              = Operation{Resource: "job", Action: "create"}
	OpUpdateJob              = Operation{Resource: "job", Action: "update"}
	OpDeleteJob              = Operation{Resource: "job", Action: "delete"}
	OpApply                  = Operation{Resource: "application", Action: "create"}
	OpListOwnApplications    = Operation{Resource: "application", Action: "list_mine"}
	OpListPostedApplications = Operation{Resource: "application", Action: "list_posted"}
)

// Policy grants an operation to a role.
type Policy struct {
	Role      Role
	Operation Operation
}

// DefaultPolicies is the job portal role table.
func DefaultPolicies() []Policy {
	return []Policy{
		{Role: RoleEmployer, Operation: OpCreateJob},
		{Role: RoleEmployer, Operation: OpUpdateJob},
		{Role: RoleEmployer, Operation: OpDeleteJob},
		{Role: RoleEmployer, Operation: OpListPostedApplications},
		{Role: RoleApplicant, Operation: OpApply},
		{Role: RoleApplicant, Operation: OpListOwnApplications},
	}
}

// Guard enforces role requirements and resource ownership for an
// explicit caller.
type Guard struct {
	enforcer *casbin.SyncedEnforcer
	logger   Logger
	sink     ActivitySink
}

// GuardOption customizes a Guard.
type GuardOption func(*guardOptions)

type guardOptions struct {
	policies []Policy
	logger   Logger
	sink     ActivitySink
}

// WithGuardPolicies replaces the default role table.
func WithGuardPolicies(policies ...Policy) GuardOption {
	return func(o *guardOptions) {
		o.policies = policies
	}
}

// WithGuardLogger overrides the guard logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(o *guardOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithGuardActivitySink publishes denials to sink.
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(o *guardOptions) {
		o.sink = sink
	}
}

// NewGuard builds a Guard backed by an in-memory casbin enforcer.
func NewGuard(opts ...GuardOption) (*Guard, error) {
	options := &guardOptions{
		policies: DefaultPolicies(),
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	for _, p := range options.policies {
		if !p.Role.IsValid() {
			return nil, fmt.Errorf("policy for %s: invalid role %q", p.Operation, p.Role)
		}
		if _, err := enforcer.AddPolicy(p.Role.Authority(), p.Operation.Resource, p.Operation.Action); err != nil {
			return nil, fmt.Errorf("add policy %s: %w", p.Operation, err)
		}
	}

	return &Guard{
		enforcer: enforcer,
		logger:   options.logger,
		sink:     normalizeActivitySink(options.sink),
	}, nil
}

// MustNewGuard is NewGuard for wiring code.
func MustNewGuard(opts ...GuardOption) *Guard {
	g, err := NewGuard(opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Authorize checks that caller holds an authority allowed to perform op.
func (g *Guard) Authorize(ctx context.Context, caller Caller, op Operation) error {
	if !caller.Authenticated() {
		return WithDetails(ErrUnauthenticated, nil, map[string]any{"operation": op.String()})
	}

	for _, authority := range caller.Authorities {
		ok, err := g.enforcer.Enforce(authority, op.Resource, op.Action)
		if err != nil {
			return fmt.Errorf("enforce %s: %w", op, err)
		}
		if ok {
			return nil
		}
	}

	g.logger.Info("authorization denied", "email", caller.Email, "operation", op.String())
	RecordActivity(ctx, g.sink, g.logger, ActivityEvent{
		EventType: ActivityEventAuthorizationDenied,
		Actor:     ActorFromCaller(caller),
		Subject:   op.String(),
	})

	return WithDetails(ErrForbidden, nil, map[string]any{
		"operation":   op.String(),
		"authorities": caller.Authorities,
	})
}

// RequireOwner checks that caller owns a resource whose owner is
// ownerEmail. The caller must have loaded the resource first so a
// missing resource reports not found before any ownership mismatch.
func (g *Guard) RequireOwner(caller Caller, ownerEmail string) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if !caller.Owns(ownerEmail) {
		g.logger.Info("ownership check failed", "email", caller.Email)
		return WithDetails(ErrUnauthorizedAccess, nil, nil)
	}
	return nil
}
