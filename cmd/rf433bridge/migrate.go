package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the transmitter registry schema",
		Long: `Applies or rolls back the SQLite schema used by the transmitter registry.
run applies pending migrations on startup; use down to undo the latest one.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), opts.configPath, func(ctx context.Context, db *database.DB) error {
					if err := db.Migrate(ctx); err != nil {
						return err
					}
					return printMigrationStatus(ctx, cmd.OutOrStdout(), db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), opts.configPath, func(ctx context.Context, db *database.DB) error {
					if err := db.MigrateDown(ctx); err != nil {
						return err
					}
					return printMigrationStatus(ctx, cmd.OutOrStdout(), db)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), opts.configPath, func(ctx context.Context, db *database.DB) error {
					return printMigrationStatus(ctx, cmd.OutOrStdout(), db)
				})
			},
		},
	)
	return cmd
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(ctx context.Context, configPath string, fn func(context.Context, *database.DB) error) error {
	cfg, err := loadConfig(configPath, true)
	if err != nil {
		return err
	}
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := fn(ctx, db); err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.Database.Path, err)
	}
	return nil
}

func printMigrationStatus(ctx context.Context, w io.Writer, db *database.DB) error {
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}
	for _, r := range applied {
		fmt.Fprintf(w, "applied %s %s\n", r.Version, r.AppliedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending %s %s\n", m.Version, m.Name)
	}
	return nil
}
