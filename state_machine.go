package auth

import (
	"context"
	"time"
)

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor     ActorRef
	Principal *Principal
	From      RoleState
	To        RoleState
	FromRole  Role
	ToRole    Role
}

// TransitionHook is executed after a role has been persisted.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// RoleStateMachine defines the role selection lifecycle of a principal.
type RoleStateMachine interface {
	NeedsSelection(p *Principal) bool
	CurrentState(p *Principal) RoleState
	AssignRole(ctx context.Context, actor ActorRef, p *Principal, roleToken string) (*Principal, error)
	AvailableRoles() []Role
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*roleStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *roleStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish role events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *roleStateMachine) {
		sm.sink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *roleStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithAfterAssignHook adds a hook run after the role is stored. Hook
// errors are logged, the assignment itself stands.
func WithAfterAssignHook(h TransitionHook) StateMachineOption {
	return func(sm *roleStateMachine) {
		if h != nil {
			sm.afterHooks = append(sm.afterHooks, h)
		}
	}
}

// NewRoleStateMachine returns the default implementation backed by store.
func NewRoleStateMachine(store PrincipalStore, opts ...StateMachineOption) RoleStateMachine {
	sm := &roleStateMachine{
		store: store,
		transitions: map[RoleState]map[RoleState]struct{}{
			RoleStateNone: {
				RoleStateAssigned: {},
			},
			RoleStateAssigned: {
				RoleStateAssigned: {},
			},
		},
		activityRecorder: newActivityRecorder(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type roleStateMachine struct {
	store       PrincipalStore
	transitions map[RoleState]map[RoleState]struct{}
	afterHooks  []TransitionHook
	activityRecorder
}

func (sm *roleStateMachine) NeedsSelection(p *Principal) bool {
	return sm.CurrentState(p) == RoleStateNone
}

func (sm *roleStateMachine) CurrentState(p *Principal) RoleState {
	return p.RoleState()
}

func (sm *roleStateMachine) AvailableRoles() []Role {
	return AvailableRoles()
}

// AssignRole parses roleToken and stores it on the principal. Assigning
// over an existing role overwrites it. An invalid token leaves the
// principal untouched.
func (sm *roleStateMachine) AssignRole(ctx context.Context, actor ActorRef, p *Principal, roleToken string) (*Principal, error) {
	if p == nil {
		return nil, WithDetails(ErrPrincipalNotFound, nil, map[string]any{
			"reason": "principal is nil",
		})
	}

	role, ok := ParseRole(roleToken)
	if !ok {
		return nil, WithDetails(ErrInvalidRole, nil, map[string]any{
			"role":    roleToken,
			"allowed": AvailableRoles(),
		})
	}

	from := sm.CurrentState(p)
	if !sm.canTransition(from, RoleStateAssigned) {
		return nil, WithDetails(ErrInvalidTransition, nil, map[string]any{
			"from": from,
			"to":   RoleStateAssigned,
		})
	}

	fromRole := p.Role
	updated, err := sm.store.UpdatePrincipalRole(ctx, p.Email, role)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = p
	}
	updated.Role = role

	tc := TransitionContext{
		Actor:     actor,
		Principal: updated,
		From:      from,
		To:        RoleStateAssigned,
		FromRole:  fromRole,
		ToRole:    role,
	}
	for _, hook := range sm.afterHooks {
		if err := hook(ctx, tc); err != nil {
			sm.logger.Warn("role assignment hook failed", "email", updated.Email, "error", err)
		}
	}

	sm.record(ctx, ActivityEvent{
		EventType: ActivityEventRoleAssigned,
		Actor:     actor,
		Subject:   updated.Email,
		FromRole:  fromRole,
		ToRole:    role,
	})

	return updated, nil
}

func (sm *roleStateMachine) canTransition(from, to RoleState) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}
