// Package auth is the identity and access-control core of the job portal:
// principals, deferred role selection, bearer tokens and the guards that
// protect job and application operations.
//
// Principals:
//   - A Principal is keyed by its normalized email. Origin tells LOCAL
//     (password) accounts apart from EXTERNAL ones created on first login
//     through an identity provider. EXTERNAL principals start without a role.
//   - IdentityResolver maps provider attributes (email, sub, login,
//     preferred_username, in that order) to a principal, creating it once.
//
// Role selection:
//   - RoleStateMachine moves a principal from NO_ROLE to ROLE_ASSIGNED.
//     Reassignment overwrites the role; nothing returns a principal to NO_ROLE.
//   - RoleSelection issues a fresh token once a role has been picked.
//
// Tokens:
//   - TokenService signs HS256 tokens whose payload is sub, role,
//     role_selected and exp. Parse checks signature and expiry only; Verify
//     also reloads the principal so authorities always reflect the store.
//
// Guards:
//   - Guard checks role requirements through a casbin policy table and
//     ownership by comparing the caller email with the resource owner.
//   - DuplicateActionGuard rejects a second action record for the same
//     (actor, resource) pair. The store's unique index is authoritative.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter; sink errors are logged and
//     never fail the operation that produced the event.
package auth
