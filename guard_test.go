package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-jobportal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employer(email string) auth.Caller {
	return auth.CallerFromPrincipal(&auth.Principal{Email: email, Role: auth.RoleEmployer})
}

func applicant(email string) auth.Caller {
	return auth.CallerFromPrincipal(&auth.Principal{Email: email, Role: auth.RoleApplicant})
}

func TestGuard_Authorize(t *testing.T) {
	guard, err := auth.NewGuard(auth.WithGuardLogger(&captureLogger{}))
	require.NoError(t, err)

	noRole := auth.CallerFromPrincipal(&auth.Principal{Email: "fresh@x.io"})

	tests := []struct {
		name     string
		caller   auth.Caller
		op       auth.Operation
		textCode string
	}{
		{"employer creates job", employer("e@x.io"), auth.OpCreateJob, ""},
		{"employer updates job", employer("e@x.io"), auth.OpUpdateJob, ""},
		{"employer deletes job", employer("e@x.io"), auth.OpDeleteJob, ""},
		{"employer lists posted applications", employer("e@x.io"), auth.OpListPostedApplications, ""},
		{"applicant applies", applicant("a@x.io"), auth.OpApply, ""},
		{"applicant lists own applications", applicant("a@x.io"), auth.OpListOwnApplications, ""},
		{"applicant cannot create job", applicant("a@x.io"), auth.OpCreateJob, auth.TextCodeForbidden},
		{"employer cannot apply", employer("e@x.io"), auth.OpApply, auth.TextCodeForbidden},
		{"no role is forbidden", noRole, auth.OpApply, auth.TextCodeForbidden},
		{"anonymous is unauthenticated", auth.Anonymous(), auth.OpCreateJob, auth.TextCodeUnauthenticated},
		{"unknown operation", employer("e@x.io"), auth.Operation{Resource: "job", Action: "archive"}, auth.TextCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(context.Background(), tt.caller, tt.op)
			if tt.textCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, auth.IsCode(err, tt.textCode), err.Error())
		})
	}
}

func TestGuard_AuthorizeRecordsDenial(t *testing.T) {
	sink := &captureSink{}
	guard := auth.MustNewGuard(auth.WithGuardActivitySink(sink), auth.WithGuardLogger(&captureLogger{}))

	err := guard.Authorize(context.Background(), applicant("a@x.io"), auth.OpDeleteJob)
	require.Error(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, auth.ActivityEventAuthorizationDenied, sink.events[0].EventType)
	assert.Equal(t, "job:delete", sink.events[0].Subject)
	assert.Equal(t, "a@x.io", sink.events[0].Actor.ID)
}

func TestGuard_CustomPolicies(t *testing.T) {
	guard, err := auth.NewGuard(auth.WithGuardPolicies(
		auth.Policy{Role: auth.RoleApplicant, Operation: auth.OpCreateJob},
	))
	require.NoError(t, err)

	assert.NoError(t, guard.Authorize(context.Background(), applicant("a@x.io"), auth.OpCreateJob))
	assert.Error(t, guard.Authorize(context.Background(), employer("e@x.io"), auth.OpCreateJob))

	_, err = auth.NewGuard(auth.WithGuardPolicies(auth.Policy{Role: "ADMIN", Operation: auth.OpCreateJob}))
	assert.Error(t, err)
}

func TestGuard_RequireOwner(t *testing.T) {
	guard := auth.MustNewGuard(auth.WithGuardLogger(&captureLogger{}))

	assert.NoError(t, guard.RequireOwner(employer("alice@x.io"), "alice@x.io"))
	assert.NoError(t, guard.RequireOwner(employer("alice@x.io"), "Alice@X.io"))

	err := guard.RequireOwner(employer("bob@x.io"), "alice@x.io")
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeUnauthorizedAccess))

	err = guard.RequireOwner(auth.Anonymous(), "alice@x.io")
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeUnauthenticated))
}
