package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-jobportal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiActivitySinkFansOut(t *testing.T) {
	first, second := &captureSink{}, &captureSink{}
	sink := auth.MultiActivitySink(first, nil, second)

	event := auth.ActivityEvent{EventType: auth.ActivityEventPrincipalCreated, Subject: "ana@example.com"}
	require.NoError(t, sink.Record(context.Background(), event))

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventPrincipalCreated}, first.types())
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventPrincipalCreated}, second.types())
}

func TestMultiActivitySinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error { return boom })
	after := &captureSink{}

	err := auth.MultiActivitySink(failing, after).Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
	})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, after.types(), 1, "later sinks still receive the event")
}

func TestRecordActivityStampsDefaults(t *testing.T) {
	sink := &captureSink{}
	logger := &captureLogger{}

	auth.RecordActivity(context.Background(), sink, logger, auth.ActivityEvent{
		EventType: auth.ActivityEventResourceCreated,
		Subject:   "job-1",
	})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "system", sink.events[0].Actor.Type)
	assert.False(t, sink.events[0].OccurredAt.IsZero())
}
