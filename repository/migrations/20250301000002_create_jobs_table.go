package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal/jobs"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250301000002, down_20250301000002)
}

// up_20250301000002 creates the jobs table
func up_20250301000002(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*jobs.Job)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*jobs.Job)(nil)).
		Index("idx_jobs_posted_by").
		IfNotExists().
		Column("posted_by").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_jobs_posted_by: %w", err)
	}
	return nil
}

// down_20250301000002 drops the jobs table
func down_20250301000002(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*jobs.Job)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop jobs table: %w", err)
	}
	return nil
}
