package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/jobs"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var deleteJobSQL = `DELETE FROM "jobs" WHERE "id" = ? RETURNING *;`

// JobStore implements jobs.JobStore on a go-repository-bun repository.
// List queries stay on bun for their ordering.
type JobStore struct {
	repository.Repository[*jobs.Job]
	db bun.IDB
}

var _ jobs.JobStore = (*JobStore)(nil)

// NewJobStore creates a new store.
func NewJobStore(db *bun.DB) *JobStore {
	repo := repository.NewRepository[*jobs.Job](db, repository.ModelHandlers[*jobs.Job]{
		NewRecord: func() *jobs.Job { return &jobs.Job{} },
		GetID: func(job *jobs.Job) uuid.UUID {
			if job == nil {
				return uuid.Nil
			}
			return job.ID
		},
		SetID: func(job *jobs.Job, id uuid.UUID) {
			if job != nil {
				job.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
	return &JobStore{Repository: repo, db: db}
}

// WithTx returns a copy of the store whose queries run on tx.
func (s *JobStore) WithTx(tx bun.IDB) *JobStore {
	return &JobStore{Repository: s.Repository, db: tx}
}

func jobNotFound(id uuid.UUID) error {
	return auth.WithDetails(jobs.ErrJobNotFound, nil, map[string]any{"job": id.String()})
}

// FindResourceByID implements jobs.JobStore.
func (s *JobStore) FindResourceByID(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	job, err := s.Repository.GetByIdentifierTx(ctx, s.db, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, jobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// FindResourcesByOwner implements jobs.JobStore.
func (s *JobStore) FindResourcesByOwner(ctx context.Context, ownerEmail string) ([]*jobs.Job, error) {
	out := []*jobs.Job{}
	err := s.db.NewSelect().
		Model(&out).
		Where("?TableAlias.posted_by = ?", auth.NormalizeEmail(ownerEmail)).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

// ListResources implements jobs.JobStore.
func (s *JobStore) ListResources(ctx context.Context) ([]*jobs.Job, error) {
	out := []*jobs.Job{}
	err := s.db.NewSelect().
		Model(&out).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

// SaveResource implements jobs.JobStore.
func (s *JobStore) SaveResource(ctx context.Context, job *jobs.Job) (*jobs.Job, error) {
	row := *job
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	created, err := s.Repository.CreateTx(ctx, s.db, &row)
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = &row
	}
	return created, nil
}

// UpdateResource implements jobs.JobStore. The owner column is never
// written.
func (s *JobStore) UpdateResource(ctx context.Context, job *jobs.Job) (*jobs.Job, error) {
	if _, err := s.FindResourceByID(ctx, job.ID); err != nil {
		return nil, err
	}

	record := *job
	if record.UpdatedAt == nil {
		now := time.Now().UTC()
		record.UpdatedAt = &now
	}
	_, err := s.Repository.UpdateTx(ctx, s.db, &record,
		repository.UpdateByID(job.ID.String()),
		updateColumns("title", "description", "company", "remote", "salary", "updated_at"),
	)
	if err != nil {
		return nil, err
	}
	return s.FindResourceByID(ctx, job.ID)
}

// DeleteResource implements jobs.JobStore. Applications on the job are
// removed by the foreign key cascade.
func (s *JobStore) DeleteResource(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.Repository.RawTx(ctx, s.db, deleteJobSQL, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return jobNotFound(id)
		}
		return err
	}
	if len(deleted) == 0 {
		return jobNotFound(id)
	}
	return nil
}
