package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal/jobs"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250301000003, down_20250301000003)
}

// up_20250301000003 creates the applications table. The composite unique
// index allows one application per applicant and job.
func up_20250301000003(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*jobs.Application)(nil)).
		IfNotExists().
		ForeignKey(`("applicant_id") REFERENCES "principals" ("id") ON DELETE CASCADE`).
		ForeignKey(`("job_id") REFERENCES "jobs" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create applications table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*jobs.Application)(nil)).
		Index("idx_applications_applicant_job").
		Unique().
		IfNotExists().
		Column("applicant_id", "job_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_applications_applicant_job: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*jobs.Application)(nil)).
		Index("idx_applications_job").
		IfNotExists().
		Column("job_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_applications_job: %w", err)
	}
	return nil
}

// down_20250301000003 drops the applications table
func down_20250301000003(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*jobs.Application)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop applications table: %w", err)
	}
	return nil
}
