package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, e auth.ActivityEvent) error {
	s.events = append(s.events, e)
	return nil
}

func tickingClock() func() time.Time {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	mem     *memory
	service *jobs.Service
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := newMemory()
	sink := &recordingSink{}
	svc := jobs.NewService(mem, mem, mem, auth.MustNewGuard(),
		jobs.WithActivitySink(sink),
		jobs.WithClock(tickingClock()),
	)
	return &fixture{mem: mem, service: svc, sink: sink}
}

func (f *fixture) principal(t *testing.T, email, name string, role auth.Role) auth.Caller {
	t.Helper()
	p, err := f.mem.SavePrincipal(context.Background(), &auth.Principal{
		Email:  email,
		Name:   name,
		Role:   role,
		Origin: auth.OriginLocal,
	})
	require.NoError(t, err)
	return auth.CallerFromPrincipal(p)
}

func TestService_CreateJobSetsOwner(t *testing.T) {
	f := newFixture(t)
	alice := f.principal(t, "alice@x.io", "Alice", auth.RoleEmployer)

	job, err := f.service.CreateJob(context.Background(), alice, jobs.JobInput{
		Title:   " Go Developer ",
		Company: "Acme",
		Remote:  true,
		Salary:  5000,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, "Go Developer", job.Title)
	assert.Equal(t, "alice@x.io", job.PostedBy)
	assert.True(t, job.Remote)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, auth.ActivityEventResourceCreated, f.sink.events[0].EventType)
}

func TestService_CreateJobErrors(t *testing.T) {
	f := newFixture(t)
	applicant := f.principal(t, "app@x.io", "App", auth.RoleApplicant)
	employer := f.principal(t, "emp@x.io", "Emp", auth.RoleEmployer)

	tests := []struct {
		name     string
		caller   auth.Caller
		input    jobs.JobInput
		textCode string
	}{
		{"anonymous", auth.Anonymous(), jobs.JobInput{Title: "x"}, auth.TextCodeUnauthenticated},
		{"applicant", applicant, jobs.JobInput{Title: "x"}, auth.TextCodeForbidden},
		{"missing title", employer, jobs.JobInput{}, auth.TextCodeValidation},
		{"negative salary", employer, jobs.JobInput{Title: "x", Salary: -1}, auth.TextCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateJob(context.Background(), tt.caller, tt.input)
			require.Error(t, err)
			assert.True(t, auth.IsCode(err, tt.textCode), err.Error())
		})
	}

	list, err := f.service.ListJobs(context.Background(), employer)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_OwnershipEnforcement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.principal(t, "alice@x.io", "Alice", auth.RoleEmployer)
	bob := f.principal(t, "bob@x.io", "Bob", auth.RoleEmployer)

	job, err := f.service.CreateJob(ctx, alice, jobs.JobInput{Title: "Original"})
	require.NoError(t, err)

	_, err = f.service.UpdateJob(ctx, bob, job.ID, jobs.JobInput{Title: "Hijacked"})
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeUnauthorizedAccess))

	err = f.service.DeleteJob(ctx, bob, job.ID)
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeUnauthorizedAccess))

	_, err = f.service.ApplicationsForJob(ctx, bob, job.ID)
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeUnauthorizedAccess))

	stored, err := f.service.GetJob(ctx, alice, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", stored.Title)
	assert.Equal(t, "alice@x.io", stored.PostedBy)

	updated, err := f.service.UpdateJob(ctx, alice, job.ID, jobs.JobInput{Title: "Renamed", Salary: 10})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "alice@x.io", updated.PostedBy)

	require.NoError(t, f.service.DeleteJob(ctx, alice, job.ID))
	_, err = f.service.GetJob(ctx, alice, job.ID)
	assert.True(t, auth.IsCode(err, jobs.TextCodeJobNotFound))
}

func TestService_MissingJobReportsNotFoundBeforeOwnership(t *testing.T) {
	f := newFixture(t)
	bob := f.principal(t, "bob@x.io", "Bob", auth.RoleEmployer)
	missing := uuid.New()

	_, err := f.service.UpdateJob(context.Background(), bob, missing, jobs.JobInput{Title: "x"})
	assert.True(t, auth.IsCode(err, jobs.TextCodeJobNotFound))

	err = f.service.DeleteJob(context.Background(), bob, missing)
	assert.True(t, auth.IsCode(err, jobs.TextCodeJobNotFound))

	_, err = f.service.ApplicationsForJob(context.Background(), bob, missing)
	assert.True(t, auth.IsCode(err, jobs.TextCodeJobNotFound))
}

func TestService_ApplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp := f.principal(t, "emp@x.io", "Emp", auth.RoleEmployer)
	app := f.principal(t, "app@x.io", "Applicant", auth.RoleApplicant)

	job, err := f.service.CreateJob(ctx, emp, jobs.JobInput{Title: "Backend", Company: "Acme"})
	require.NoError(t, err)

	dto, err := f.service.Apply(ctx, app, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, dto.JobID)
	assert.Equal(t, "Backend", dto.JobTitle)
	assert.Equal(t, "Acme", dto.CompanyName)

	_, err = f.service.Apply(ctx, app, job.ID)
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeDuplicateAction))
	assert.Equal(t, 1, f.mem.applicationCount())

	_, err = f.service.Apply(ctx, app, uuid.New())
	assert.True(t, auth.IsCode(err, jobs.TextCodeJobNotFound))

	_, err = f.service.Apply(ctx, emp, job.ID)
	assert.True(t, auth.IsCode(err, auth.TextCodeForbidden))
}

func TestService_ApplyStoreConstraintWins(t *testing.T) {
	ctx := context.Background()
	mem := newMemory()
	svc := jobs.NewService(mem, racingApplications{mem}, mem, auth.MustNewGuard())

	empP, err := mem.SavePrincipal(ctx, &auth.Principal{Email: "emp@x.io", Role: auth.RoleEmployer})
	require.NoError(t, err)
	appP, err := mem.SavePrincipal(ctx, &auth.Principal{Email: "app@x.io", Role: auth.RoleApplicant})
	require.NoError(t, err)

	job, err := svc.CreateJob(ctx, auth.CallerFromPrincipal(empP), jobs.JobInput{Title: "Race"})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, auth.CallerFromPrincipal(appP), job.ID)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, auth.CallerFromPrincipal(appP), job.ID)
	require.Error(t, err)
	assert.True(t, auth.IsCode(err, auth.TextCodeDuplicateAction))
	assert.Equal(t, 1, mem.applicationCount())
}

func TestService_ApplicationListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.principal(t, "alice@x.io", "Alice", auth.RoleEmployer)
	bob := f.principal(t, "bob@x.io", "Bob", auth.RoleEmployer)
	carol := f.principal(t, "carol@x.io", "Carol", auth.RoleApplicant)
	dave := f.principal(t, "dave@x.io", "Dave", auth.RoleApplicant)

	aliceJob, err := f.service.CreateJob(ctx, alice, jobs.JobInput{Title: "A1", Company: "Alpha"})
	require.NoError(t, err)
	bobJob, err := f.service.CreateJob(ctx, bob, jobs.JobInput{Title: "B1", Company: "Beta"})
	require.NoError(t, err)

	for _, apply := range []struct {
		caller auth.Caller
		job    uuid.UUID
	}{
		{carol, aliceJob.ID},
		{carol, bobJob.ID},
		{dave, aliceJob.ID},
	} {
		_, err := f.service.Apply(ctx, apply.caller, apply.job)
		require.NoError(t, err)
	}

	mine, err := f.service.MyApplications(ctx, carol)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	posted, err := f.service.ApplicationsForPostedJobs(ctx, alice)
	require.NoError(t, err)
	require.Len(t, posted, 2)
	emails := []string{posted[0].ApplicantEmail, posted[1].ApplicantEmail}
	assert.ElementsMatch(t, []string{"carol@x.io", "dave@x.io"}, emails)
	assert.Equal(t, "Alpha", posted[0].CompanyName)

	forBob, err := f.service.ApplicationsForJob(ctx, bob, bobJob.ID)
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, "Carol", forBob[0].ApplicantName)

	_, err = f.service.MyApplications(ctx, alice)
	assert.True(t, auth.IsCode(err, auth.TextCodeForbidden))
	_, err = f.service.ApplicationsForPostedJobs(ctx, carol)
	assert.True(t, auth.IsCode(err, auth.TextCodeForbidden))
}
