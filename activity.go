package auth

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventPrincipalCreated    ActivityEventType = "principal.created"
	ActivityEventRoleAssigned        ActivityEventType = "principal.role.assigned"
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventExternalLogin       ActivityEventType = "auth.external.login"
	ActivityEventResourceCreated     ActivityEventType = "resource.created"
	ActivityEventResourceUpdated     ActivityEventType = "resource.updated"
	ActivityEventResourceDeleted     ActivityEventType = "resource.deleted"
	ActivityEventActionRecorded      ActivityEventType = "action.recorded"
	ActivityEventAuthorizationDenied ActivityEventType = "authz.denied"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActorFromCaller builds an ActorRef for an authenticated caller.
func ActorFromCaller(c Caller) ActorRef {
	if !c.Authenticated() {
		return ActorRef{Type: "anonymous"}
	}
	return ActorRef{ID: c.Email, Type: "principal"}
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	Subject    string
	FromRole   Role
	ToRole     Role
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// NewLoggerActivitySink writes every event as an info log line.
func NewLoggerActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"actor", event.Actor.ID,
			"actor_type", event.Actor.Type,
			"subject", event.Subject,
		}
		if event.FromRole != "" || event.ToRole != "" {
			args = append(args, "from_role", string(event.FromRole), "to_role", string(event.ToRole))
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// activityRecorder is embedded by services that publish events.
type activityRecorder struct {
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

func newActivityRecorder() activityRecorder {
	return activityRecorder{
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
}

func (r activityRecorder) record(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}
	if err := normalizeActivitySink(r.sink).Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error", "event", string(event.EventType), "error", err)
	}
}

// RecordActivity publishes an event through sink, logging sink failures.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	rec := newActivityRecorder()
	rec.sink = normalizeActivitySink(sink)
	if logger != nil {
		rec.logger = logger
	}
	rec.record(ctx, event)
}

type multiActivitySink []ActivitySink

// MultiActivitySink fans an event out to every sink. All sinks are
// called; their errors are joined.
func MultiActivitySink(sinks ...ActivitySink) ActivitySink {
	out := make(multiActivitySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
