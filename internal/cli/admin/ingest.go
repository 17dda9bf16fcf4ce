package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract the source document and populate the vector store",
		Long:  "Run the startup ingestion on its own. Without --force an up-to-date collection is left untouched.",
		RunE:  runIngest,
	}

	cmd.Flags().Bool("force", false, "Repopulate the collection even when it is up to date")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := setupApp(ctx, cmd, !noMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	force, _ := cmd.Flags().GetBool("force")
	result, err := a.initializer.Run(ctx, force)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWith(cmd, config.LoadDatabase)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := database.RunMigrations(cfg.DatabaseURL, migrationsDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
