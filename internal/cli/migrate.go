package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/db"
	"github.com/phonginreallife/taskboard/internal/config"
)

var dryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Long: `Apply the embedded PostgreSQL migrations in order. Applied versions are
recorded in schema_migrations, so running it twice is a no-op.

Environment Variables Required:
  DATABASE_URL    - PostgreSQL connection string

Examples:
  taskboard migrate             # Apply pending migrations
  taskboard migrate --dry-run   # List pending migrations without applying`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if config.App.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	conn, err := openPostgres(ctx, config.App.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if dryRun {
		pending, err := db.Pending(ctx, conn)
		if err != nil {
			return err
		}
		for _, m := range pending {
			logger.Info("pending migration", zap.String("file", m.Name))
		}
		logger.Info("[DRY-RUN] no changes applied", zap.Int("pending", len(pending)))
		return nil
	}

	applied, err := db.Apply(ctx, conn, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", zap.Int("applied", len(applied)))
	return nil
}
