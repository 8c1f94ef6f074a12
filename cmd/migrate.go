package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/approval-portal/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateStatusCmd = &cobra.Command{
		RunE:  runMigrationStatus,
		Use:   "status",
		Short: "print the applied state of every migration",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigration(_ *cobra.Command, _ []string) error {
	command := "up"
	if migrateRollback {
		command = "down"
	}
	return withGoose(func(ctx context.Context, run func(string) error) error {
		logger.LoggerWrapper().Info("running migrations", "command", command, "dir", migrateDir)
		return run(command)
	})
}

func runMigrationStatus(_ *cobra.Command, _ []string) error {
	return withGoose(func(ctx context.Context, run func(string) error) error {
		return run("status")
	})
}

func withGoose(fn func(ctx context.Context, run func(string) error) error) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	return fn(ctx, func(command string) error {
		if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}
