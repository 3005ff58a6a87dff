package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const TextCodeSelectionPrincipalMissing = "ROLE_SELECTION_USER_NOT_FOUND"

// ErrSelectionPrincipalMissing is returned when a role is selected for a
// token whose principal no longer exists.
var ErrSelectionPrincipalMissing = goerrors.New("user not found", goerrors.CategoryBadInput).
	WithTextCode(TextCodeSelectionPrincipalMissing).
	WithCode(goerrors.CodeBadRequest)

// RolePrompt is shown to principals that still have to pick a role.
type RolePrompt struct {
	Email string `json:"email"`
	Roles []Role `json:"roles"`
}

// RoleStatus reports the current role state of a principal.
type RoleStatus struct {
	Email        string `json:"email"`
	Role         *Role  `json:"role"`
	RoleSelected bool   `json:"role_selected"`
}

// RoleSelection ties the state machine to token issuance.
type RoleSelection struct {
	store   PrincipalStore
	machine RoleStateMachine
	tokens  *TokenService
	logger  Logger
}

// NewRoleSelection wires the role selection flow.
func NewRoleSelection(store PrincipalStore, machine RoleStateMachine, tokens *TokenService, logger Logger) *RoleSelection {
	if logger == nil {
		logger = defLogger{}
	}
	return &RoleSelection{store: store, machine: machine, tokens: tokens, logger: logger}
}

// Prompt returns the selectable roles for email.
func (s *RoleSelection) Prompt(email string) RolePrompt {
	return RolePrompt{Email: email, Roles: s.machine.AvailableRoles()}
}

// Roles returns the selectable roles in canonical order.
func (s *RoleSelection) Roles() []Role {
	return s.machine.AvailableRoles()
}

// Select assigns roleToken to the principal behind email and issues a
// token that carries the new role.
func (s *RoleSelection) Select(ctx context.Context, email, roleToken string) (*Token, error) {
	if strings.TrimSpace(roleToken) == "" {
		return nil, WithDetails(ErrInvalidRole, nil, map[string]any{"reason": "role is required"})
	}

	p, err := s.store.FindPrincipalByEmail(ctx, email)
	if err != nil {
		if IsCode(err, TextCodePrincipalNotFound) {
			return nil, WithDetails(ErrSelectionPrincipalMissing, err, map[string]any{"email": email})
		}
		return nil, err
	}

	updated, err := s.machine.AssignRole(ctx, ActorRef{ID: p.Email, Type: "principal"}, p, roleToken)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role selected", "email", updated.Email, "role", string(updated.Role))
	return s.tokens.Issue(updated)
}

// Status loads the principal and reports its role state.
func (s *RoleSelection) Status(ctx context.Context, email string) (*RoleStatus, error) {
	p, err := s.store.FindPrincipalByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	status := &RoleStatus{
		Email:        p.Email,
		RoleSelected: !s.machine.NeedsSelection(p),
	}
	if status.RoleSelected {
		role := p.Role
		status.Role = &role
	}
	return status, nil
}
