package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal/repository"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250301000004, down_20250301000004)
}

// up_20250301000004 creates the linked_accounts table. One row per
// provider subject.
func up_20250301000004(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*repository.LinkedAccountModel)(nil)).
		IfNotExists().
		ForeignKey(`("principal_id") REFERENCES "principals" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create linked_accounts table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*repository.LinkedAccountModel)(nil)).
		Index("idx_linked_accounts_provider_subject").
		Unique().
		IfNotExists().
		Column("provider", "subject").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_linked_accounts_provider_subject: %w", err)
	}
	return nil
}

// down_20250301000004 drops the linked_accounts table
func down_20250301000004(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*repository.LinkedAccountModel)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop linked_accounts table: %w", err)
	}
	return nil
}
