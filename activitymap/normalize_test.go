package activitymap_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/activitymap"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoleAssignment(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleAssigned,
		Actor:     auth.ActorRef{ID: "ana@example.com", Type: "principal"},
		Subject:   "ana@example.com",
		ToRole:    auth.RoleEmployer,
		Metadata: map[string]any{
			"source": "select-role",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "ana@example.com", out.ActorID)
	assert.Equal(t, "principal.role.assigned", out.Verb)
	assert.Equal(t, activitymap.ObjectPrincipal, out.ObjectType)
	assert.Equal(t, "ana@example.com", out.ObjectID)
	assert.Equal(t, "jobportal", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, "select-role", out.Metadata["source"])
	assert.Equal(t, "principal", out.Metadata[activitymap.MetadataKeyActorType])
	assert.Equal(t, "EMPLOYER", out.Metadata[activitymap.MetadataKeyToRole])
	assert.NotContains(t, out.Metadata, activitymap.MetadataKeyFromRole)

	assert.Len(t, event.Metadata, 1, "source metadata must not be mutated")
}

func TestNormalizeObjectTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event  auth.ActivityEventType
		expect string
	}{
		{auth.ActivityEventPrincipalCreated, activitymap.ObjectPrincipal},
		{auth.ActivityEventLoginFailure, activitymap.ObjectPrincipal},
		{auth.ActivityEventExternalLogin, activitymap.ObjectPrincipal},
		{auth.ActivityEventResourceCreated, activitymap.ObjectJob},
		{auth.ActivityEventResourceDeleted, activitymap.ObjectJob},
		{auth.ActivityEventActionRecorded, activitymap.ObjectJob},
		{auth.ActivityEventAuthorizationDenied, activitymap.ObjectOperation},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.event), func(t *testing.T) {
			t.Parallel()
			out := activitymap.Normalize(auth.ActivityEvent{EventType: tc.event})
			assert.Equal(t, tc.expect, out.ObjectType)
		})
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventActionRecorded,
		Actor:     auth.ActorRef{Type: "principal"},
		Subject:   "job-1",
		Metadata: map[string]any{
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("audit"),
		activitymap.WithObjectTypeResolver(func(auth.ActivityEvent) string { return "application" }),
		activitymap.WithClock(func() time.Time { return fixed }),
	)

	assert.Equal(t, "audit", out.Channel)
	assert.Equal(t, "application", out.ObjectType)
	assert.Equal(t, "job-1", out.ObjectID)
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyActorType])
	assert.True(t, out.OccurredAt.Equal(fixed))
}

func TestNormalizeActorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, Subject: "job-1"},
			expect: "actor-1",
		},
		{
			name:   "uses default fallback when actor missing",
			event:  auth.ActivityEvent{Subject: "job-1"},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("cli")},
			expect: "cli",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := activitymap.Normalize(tc.event, tc.opts...)
			assert.Equal(t, tc.expect, out.ActorID)
		})
	}
}
