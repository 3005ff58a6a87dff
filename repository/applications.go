package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApplicationStore implements jobs.ApplicationStore using Bun.
type ApplicationStore struct {
	db bun.IDB
}

// NewApplicationStore creates a new store.
func NewApplicationStore(db bun.IDB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

// ExistsActionForPair implements jobs.ApplicationStore.
func (s *ApplicationStore) ExistsActionForPair(ctx context.Context, applicantID, jobID uuid.UUID) (bool, error) {
	return s.db.NewSelect().
		Model((*jobs.Application)(nil)).
		Where("applicant_id = ? AND job_id = ?", applicantID, jobID).
		Exists(ctx)
}

// SaveAction implements jobs.ApplicationStore. A violation of
// idx_applications_applicant_job becomes auth.ErrDuplicateAction.
func (s *ApplicationStore) SaveAction(ctx context.Context, app *jobs.Application) (*jobs.Application, error) {
	row := *app
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, auth.WithDetails(auth.ErrDuplicateAction, err, map[string]any{
				"applicant": row.ApplicantID.String(),
				"job":       row.JobID.String(),
			})
		}
		return nil, err
	}
	return &row, nil
}

// FindActionsByActor implements jobs.ApplicationStore.
func (s *ApplicationStore) FindActionsByActor(ctx context.Context, applicantID uuid.UUID) ([]*jobs.Application, error) {
	return s.find(ctx, "app.applicant_id = ?", applicantID)
}

// FindActionsByResource implements jobs.ApplicationStore.
func (s *ApplicationStore) FindActionsByResource(ctx context.Context, jobID uuid.UUID) ([]*jobs.Application, error) {
	return s.find(ctx, "app.job_id = ?", jobID)
}

func (s *ApplicationStore) find(ctx context.Context, where string, arg uuid.UUID) ([]*jobs.Application, error) {
	out := []*jobs.Application{}
	err := s.db.NewSelect().
		Model(&out).
		Relation("Job").
		Relation("Applicant").
		Where(where, arg).
		Order("app.created_at ASC", "app.id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
