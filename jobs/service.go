package jobs

import (
	"context"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/google/uuid"
)

// Service implements job postings and applications on top of the
// authorization and duplicate action guards. Every method takes the
// caller explicitly.
type Service struct {
	jobs         JobStore
	applications ApplicationStore
	principals   auth.PrincipalStore
	guard        *auth.Guard
	duplicates   *auth.DuplicateActionGuard
	logger       auth.Logger
	sink         auth.ActivitySink
	now          func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink publishes job and application events to sink.
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the job service.
func NewService(jobs JobStore, applications ApplicationStore, principals auth.PrincipalStore, guard *auth.Guard, opts ...Option) *Service {
	s := &Service{
		jobs:         jobs,
		applications: applications,
		principals:   principals,
		guard:        guard,
		logger:       auth.DefaultLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.duplicates = auth.NewDuplicateActionGuard(applications, s.logger)
	return s
}

// ListJobs returns every job.
func (s *Service) ListJobs(ctx context.Context, caller auth.Caller) ([]*Job, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	return s.jobs.ListResources(ctx)
}

// GetJob returns a single job or ErrJobNotFound.
func (s *Service) GetJob(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Job, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	return s.jobs.FindResourceByID(ctx, id)
}

// CreateJob posts a job owned by the caller.
func (s *Service) CreateJob(ctx context.Context, caller auth.Caller, in JobInput) (*Job, error) {
	if err := s.guard.Authorize(ctx, caller, auth.OpCreateJob); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	now := s.now()
	job := &Job{
		ID:        uuid.New(),
		PostedBy:  auth.NormalizeEmail(caller.Email),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	in.apply(job)

	saved, err := s.jobs.SaveResource(ctx, job)
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, auth.ActivityEventResourceCreated, saved.ID, nil)
	return saved, nil
}

// UpdateJob replaces the writable fields of a job the caller owns.
func (s *Service) UpdateJob(ctx context.Context, caller auth.Caller, id uuid.UUID, in JobInput) (*Job, error) {
	job, err := s.ownedJob(ctx, caller, auth.OpUpdateJob, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	in.apply(job)
	now := s.now()
	job.UpdatedAt = &now

	updated, err := s.jobs.UpdateResource(ctx, job)
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, auth.ActivityEventResourceUpdated, updated.ID, nil)
	return updated, nil
}

// DeleteJob removes a job the caller owns.
func (s *Service) DeleteJob(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	job, err := s.ownedJob(ctx, caller, auth.OpDeleteJob, id)
	if err != nil {
		return err
	}

	if err := s.jobs.DeleteResource(ctx, job.ID); err != nil {
		return err
	}

	s.record(ctx, caller, auth.ActivityEventResourceDeleted, job.ID, nil)
	return nil
}

// Apply records that the caller applied to jobID. A second application
// to the same job fails with auth.ErrDuplicateAction.
func (s *Service) Apply(ctx context.Context, caller auth.Caller, jobID uuid.UUID) (*ApplicationUserDto, error) {
	if err := s.guard.Authorize(ctx, caller, auth.OpApply); err != nil {
		return nil, err
	}

	applicant, err := s.principals.FindPrincipalByEmail(ctx, caller.Email)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.FindResourceByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	app := &Application{
		ID:          uuid.New(),
		ApplicantID: applicant.ID,
		JobID:       job.ID,
		CreatedAt:   &now,
	}

	err = s.duplicates.Create(ctx, applicant.ID, job.ID, func(ctx context.Context) error {
		saved, err := s.applications.SaveAction(ctx, app)
		if err != nil {
			return err
		}
		app = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, auth.ActivityEventActionRecorded, job.ID, map[string]any{
		"application_id": app.ID.String(),
	})

	dto := toUserDto(app, job)
	return &dto, nil
}

// MyApplications lists the caller's own applications.
func (s *Service) MyApplications(ctx context.Context, caller auth.Caller) ([]ApplicationUserDto, error) {
	if err := s.guard.Authorize(ctx, caller, auth.OpListOwnApplications); err != nil {
		return nil, err
	}

	applicant, err := s.principals.FindPrincipalByEmail(ctx, caller.Email)
	if err != nil {
		return nil, err
	}

	apps, err := s.applications.FindActionsByActor(ctx, applicant.ID)
	if err != nil {
		return nil, err
	}

	out := make([]ApplicationUserDto, 0, len(apps))
	for _, app := range apps {
		out = append(out, toUserDto(app, app.Job))
	}
	return out, nil
}

// ApplicationsForPostedJobs lists applications on every job the caller
// posted.
func (s *Service) ApplicationsForPostedJobs(ctx context.Context, caller auth.Caller) ([]ApplicationRecruiterDto, error) {
	if err := s.guard.Authorize(ctx, caller, auth.OpListPostedApplications); err != nil {
		return nil, err
	}

	posted, err := s.jobs.FindResourcesByOwner(ctx, caller.Email)
	if err != nil {
		return nil, err
	}

	out := []ApplicationRecruiterDto{}
	for _, job := range posted {
		apps, err := s.applications.FindActionsByResource(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		for _, app := range apps {
			out = append(out, toRecruiterDto(app, job))
		}
	}
	return out, nil
}

// ApplicationsForJob lists applications on a single job the caller owns.
func (s *Service) ApplicationsForJob(ctx context.Context, caller auth.Caller, jobID uuid.UUID) ([]ApplicationRecruiterDto, error) {
	job, err := s.ownedJob(ctx, caller, auth.OpListPostedApplications, jobID)
	if err != nil {
		return nil, err
	}

	apps, err := s.applications.FindActionsByResource(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	out := make([]ApplicationRecruiterDto, 0, len(apps))
	for _, app := range apps {
		out = append(out, toRecruiterDto(app, job))
	}
	return out, nil
}

// ownedJob authorizes op, loads the job and then checks ownership, so a
// missing job reports not found before any ownership mismatch.
func (s *Service) ownedJob(ctx context.Context, caller auth.Caller, op auth.Operation, id uuid.UUID) (*Job, error) {
	if err := s.guard.Authorize(ctx, caller, op); err != nil {
		return nil, err
	}

	job, err := s.jobs.FindResourceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.guard.RequireOwner(caller, job.PostedBy); err != nil {
		if !auth.IsCode(err, auth.TextCodeUnauthorizedAccess) {
			return nil, err
		}
		s.logger.Warn("job ownership mismatch", "job", job.ID.String(), "email", caller.Email, "operation", op.String())
		return nil, auth.WithDetails(auth.ErrUnauthorizedAccess, nil, map[string]any{
			"job": job.ID.String(),
		})
	}
	return job, nil
}

func (s *Service) record(ctx context.Context, caller auth.Caller, eventType auth.ActivityEventType, jobID uuid.UUID, meta map[string]any) {
	auth.RecordActivity(ctx, s.sink, s.logger, auth.ActivityEvent{
		EventType:  eventType,
		Actor:      auth.ActorFromCaller(caller),
		Subject:    jobID.String(),
		Metadata:   meta,
		OccurredAt: s.now(),
	})
}
