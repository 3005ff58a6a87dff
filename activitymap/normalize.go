package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-jobportal"
)

const (
	// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromRole stores the previous role of a role assignment.
	MetadataKeyFromRole = "from_role"
	// MetadataKeyToRole stores the assigned role.
	MetadataKeyToRole = "to_role"
)

const (
	defaultChannel  = "jobportal"
	defaultActorID  = "system"
	ObjectPrincipal = "principal"
	ObjectJob       = "job"
	ObjectOperation = "operation"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel            string
	actorFallback      string
	objectTypeResolver func(auth.ActivityEvent) string
	now                func() time.Time
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
// The event subject becomes the object id.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: strings.TrimSpace(options.objectTypeResolver(event)),
		ObjectID:   strings.TrimSpace(event.Subject),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectTypeResolver overrides the event type to object type mapping.
func WithObjectTypeResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if resolver != nil {
			opts.objectTypeResolver = resolver
		}
	}
}

// WithActorFallback sets the actor id used when the event has none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the clock used for events without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:            defaultChannel,
		actorFallback:      defaultActorID,
		objectTypeResolver: ObjectType,
		now:                time.Now,
	}
}

// ObjectType maps an event type to the kind of thing its subject names.
func ObjectType(event auth.ActivityEvent) string {
	switch event.EventType {
	case auth.ActivityEventResourceCreated,
		auth.ActivityEventResourceUpdated,
		auth.ActivityEventResourceDeleted,
		auth.ActivityEventActionRecorded:
		return ObjectJob
	case auth.ActivityEventAuthorizationDenied:
		return ObjectOperation
	default:
		return ObjectPrincipal
	}
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type))
	set(MetadataKeyFromRole, string(event.FromRole))
	set(MetadataKeyToRole, string(event.ToRole))
	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
