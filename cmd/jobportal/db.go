package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-jobportal/repository"
	"github.com/goliatone/go-jobportal/repository/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the migration tracking tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), opts, false, func(ctx context.Context, m *migrate.Migrator) error {
				fmt.Fprintln(cmd.OutOrStdout(), "migration tables initialized")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), opts, true, func(ctx context.Context, m *migrate.Migrator) error {
				group, err := m.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				if group.ID == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no new migrations to apply")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "applied migration group %d\n", group.ID)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), opts, false, func(ctx context.Context, m *migrate.Migrator) error {
				ms, err := m.MigrationsWithStatus(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				for _, mig := range ms {
					status := "pending"
					if mig.GroupID > 0 {
						status = fmt.Sprintf("applied (group %d)", mig.GroupID)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", mig.Name, status)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), opts, true, func(ctx context.Context, m *migrate.Migrator) error {
				group, err := m.Rollback(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if group.ID == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations to roll back")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration group %d\n", group.ID)
				}
				return nil
			})
		},
	})

	return cmd
}

// withMigrator opens the database, creates the migration tables if needed
// and runs f. Mutating commands hold the migration lock while f runs.
func withMigrator(ctx context.Context, opts *rootOptions, lock bool, f func(context.Context, *migrate.Migrator) error) error {
	db, err := repository.Open(ctx, opts.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func(db *bun.DB) { _ = repository.Close(db) }(db)

	m := migrations.NewMigrator(db)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}
	if !lock {
		return f(ctx, m)
	}

	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() { _ = m.Unlock(ctx) }()

	return f(ctx, m)
}
