package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending drafts database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Open(databaseURL(cfg.Database.URL))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if status, _ := cmd.Flags().GetBool("status"); status {
		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAPPLIED AT\tMS")
		for _, s := range statuses {
			at := "-"
			if s.AppliedAt != nil {
				at = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%d\n", s.ID, s.Applied, at, s.ExecutionMs)
		}
		return w.Flush()
	}

	applied, err := db.MigrateUp(database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migrations complete", "applied", len(applied))
	return nil
}
