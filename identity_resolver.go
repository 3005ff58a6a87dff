package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// emailAttributeKeys lists the provider attributes accepted as the
// principal email, in priority order.
var emailAttributeKeys = []string{"email", "sub", "login", "preferred_username"}

// nameAttributeKeys lists the attributes used for a new principal's name.
var nameAttributeKeys = []string{"name", "login"}

const defaultPrincipalName = "Unknown"

// IdentityResolver maps external provider attributes to a local principal,
// creating one on first sight.
type IdentityResolver struct {
	store PrincipalStore
	activityRecorder
}

// ResolverOption customizes an IdentityResolver.
type ResolverOption func(*IdentityResolver)

// WithResolverActivitySink sets the sink for principal.created events.
func WithResolverActivitySink(sink ActivitySink) ResolverOption {
	return func(r *IdentityResolver) {
		r.sink = normalizeActivitySink(sink)
	}
}

// WithResolverLogger overrides the resolver logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *IdentityResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverClock injects a custom clock.
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *IdentityResolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewIdentityResolver returns a resolver backed by store.
func NewIdentityResolver(store PrincipalStore, opts ...ResolverOption) *IdentityResolver {
	r := &IdentityResolver{
		store:            store,
		activityRecorder: newActivityRecorder(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ExtractEmail returns the first email-equivalent attribute present in
// attrs. A present key with a blank value is an error; later keys are
// only consulted when earlier ones are absent or nil.
func ExtractEmail(attrs map[string]any) (string, error) {
	for _, key := range emailAttributeKeys {
		raw, ok := attrs[key]
		if !ok || raw == nil {
			continue
		}
		email := NormalizeEmail(attributeString(raw))
		if email == "" {
			return "", WithDetails(ErrIdentityAttribute, nil, map[string]any{
				"attribute": key,
			})
		}
		return email, nil
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	return "", WithDetails(ErrIdentityAttribute, nil, map[string]any{
		"available_attributes": keys,
	})
}

// Resolve returns the principal matching the attribute map. Existing
// principals are returned unchanged. New principals are created with
// origin EXTERNAL, no role and no credential.
func (r *IdentityResolver) Resolve(ctx context.Context, attrs map[string]any) (*Principal, error) {
	email, err := ExtractEmail(attrs)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.FindPrincipalByEmail(ctx, email)
	if err == nil {
		r.logger.Debug("identity resolved to existing principal", "email", email)
		return existing, nil
	}
	if !IsCode(err, TextCodePrincipalNotFound) {
		return nil, err
	}

	name, ok := firstAttribute(attrs, nameAttributeKeys)
	if !ok {
		name = defaultPrincipalName
	}

	created, err := r.store.SavePrincipal(ctx, &Principal{
		Email:  email,
		Name:   name,
		Origin: OriginExternal,
	})
	if err != nil {
		// a concurrent first login won the unique index, use its row
		if IsCode(err, TextCodePrincipalExists) {
			r.logger.Debug("principal created concurrently, re-reading", "email", email)
			return r.store.FindPrincipalByEmail(ctx, email)
		}
		return nil, err
	}

	r.record(ctx, ActivityEvent{
		EventType: ActivityEventPrincipalCreated,
		Actor:     ActorRef{ID: email, Type: "principal"},
		Subject:   email,
		Metadata:  map[string]any{"origin": string(OriginExternal)},
	})

	return created, nil
}

func firstAttribute(attrs map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		raw, ok := attrs[key]
		if !ok || raw == nil {
			continue
		}
		if value := strings.TrimSpace(attributeString(raw)); value != "" {
			return value, true
		}
	}
	return "", false
}

func attributeString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
