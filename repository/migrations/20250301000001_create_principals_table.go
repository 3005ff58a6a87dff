package migrations

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250301000001, down_20250301000001)
}

// up_20250301000001 creates the principals table and its unique email index
func up_20250301000001(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*auth.Principal)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create principals table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*auth.Principal)(nil)).
		Index("idx_principals_email").
		Unique().
		IfNotExists().
		Column("email").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create idx_principals_email: %w", err)
	}
	return nil
}

// down_20250301000001 drops the principals table
func down_20250301000001(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().
		Model((*auth.Principal)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop principals table: %w", err)
	}
	return nil
}
