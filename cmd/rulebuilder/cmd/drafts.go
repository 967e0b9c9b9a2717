package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/types"
	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List or delete stored drafts of a rule",
	RunE:  runDrafts,
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.Flags().String("workspace", "", "workspace (required)")
	draftsCmd.Flags().String("rule", "", "rule id")
	draftsCmd.Flags().Int("limit", 20, "maximum drafts listed")
	draftsCmd.Flags().Bool("delete", false, "delete every draft of the rule")
	_ = draftsCmd.MarkFlagRequired("workspace")
}

func runDrafts(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Open(databaseURL(cfg.Database.URL))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	store := db.NewDraftStore(queries, 0)

	cc := types.CatalogContext{}
	cc.Workspace, _ = cmd.Flags().GetString("workspace")
	cc.Rule, _ = cmd.Flags().GetString("rule")
	ctx := cmd.Context()

	if del, _ := cmd.Flags().GetBool("delete"); del {
		n, err := store.Delete(ctx, cc)
		if err != nil {
			return err
		}
		slog.Info("Deleted drafts", "workspace", cc.Workspace, "rule", cc.Rule, "deleted", n)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	drafts, err := store.List(ctx, cc, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DRAFT\tCREATED\tCONDITIONS")
	for _, d := range drafts {
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04:05"), d.Conditions)
	}
	return w.Flush()
}
