package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal/repository"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250301000005, down_20250301000005)
}

func up_20250301000005(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*repository.ActivityRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create activity_log table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*repository.ActivityRecord)(nil)).
		Index("idx_activity_log_object").
		IfNotExists().
		Column("object_id", "occurred_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_activity_log_object: %w", err)
	}
	return nil
}

func down_20250301000005(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*repository.ActivityRecord)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop activity_log table: %w", err)
	}
	return nil
}
