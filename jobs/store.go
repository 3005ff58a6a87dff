package jobs

import (
	"context"

	"github.com/google/uuid"
)

// JobStore persists jobs. FindResourceByID returns ErrJobNotFound when
// no job matches.
type JobStore interface {
	FindResourceByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindResourcesByOwner(ctx context.Context, ownerEmail string) ([]*Job, error)
	ListResources(ctx context.Context) ([]*Job, error)
	SaveResource(ctx context.Context, job *Job) (*Job, error)
	UpdateResource(ctx context.Context, job *Job) (*Job, error)
	DeleteResource(ctx context.Context, id uuid.UUID) error
}

// ApplicationStore persists applications. SaveAction must return
// auth.ErrDuplicateAction when the (applicant, job) pair already exists.
// The Find methods load the Job and Applicant relations.
type ApplicationStore interface {
	ExistsActionForPair(ctx context.Context, applicantID, jobID uuid.UUID) (bool, error)
	SaveAction(ctx context.Context, app *Application) (*Application, error)
	FindActionsByActor(ctx context.Context, applicantID uuid.UUID) ([]*Application, error)
	FindActionsByResource(ctx context.Context, jobID uuid.UUID) ([]*Application, error)
}
