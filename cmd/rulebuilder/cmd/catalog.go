package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/remote"
	"github.com/solatis/rulebuilder/internal/types"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the attribute catalog of a rule with its operators",
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().String("workspace", "", "workspace (required)")
	catalogCmd.Flags().String("rule", "", "rule id")
	_ = catalogCmd.MarkFlagRequired("workspace")
}

type catalogEntry struct {
	Name      string                     `json:"name"`
	DataType  types.DataType             `json:"data_type"`
	Scope     types.Scope                `json:"source_type"`
	Operators []types.OperatorDescriptor `json:"operators"`
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := remote.NewClient(remote.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Token:   cfg.Catalog.APIToken,
		Timeout: cfg.Catalog.Timeout,
	})
	if err != nil {
		return err
	}

	opts := catalog.Options{Logger: slog.Default()}
	attrs := catalog.NewAttributeCatalog(client, opts)
	ops := catalog.NewOperatorCatalog(client, opts)

	cc := types.CatalogContext{}
	cc.Workspace, _ = cmd.Flags().GetString("workspace")
	cc.Rule, _ = cmd.Flags().GetString("rule")

	ctx := cmd.Context()
	entries := []catalogEntry{}
	for _, a := range attrs.Load(ctx, cc) {
		entries = append(entries, catalogEntry{
			Name:      a.Name,
			DataType:  a.DataType,
			Scope:     a.Scope,
			Operators: ops.LoadFor(ctx, a.DataType),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
