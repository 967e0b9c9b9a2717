package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/api"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/core/server"
	"github.com/solatis/rulebuilder/internal/remote"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC editor service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().Int("metrics-port", 9464, "ops HTTP port for /metrics, /healthz and /readyz (0 disables)")
	serveCmd.Flags().Int("keep-drafts", db.DefaultKeepDrafts, "drafts kept per rule")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := slog.Default()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.Server.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	database, err := db.Open(databaseURL(cfg.Database.URL))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := requireMigrated(database); err != nil {
		return err
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	keep, _ := cmd.Flags().GetInt("keep-drafts")
	drafts := db.NewDraftStore(queries, keep)

	client, err := remote.NewClient(remote.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Token:   cfg.Catalog.APIToken,
		Timeout: cfg.Catalog.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create rule service client: %w", err)
	}
	if cfg.Catalog.APIToken == "" {
		logger.Warn("No rule service token configured", "env", config.EnvAPIToken)
	}

	catalogOpts := catalog.Options{TTL: cfg.Catalog.TTL, Logger: logger}
	attrs := catalog.NewAttributeCatalog(client, catalogOpts)
	ops := catalog.NewOperatorCatalog(client, catalogOpts)

	warmCtx, cancelWarm := context.WithTimeout(ctx, cfg.Catalog.Timeout)
	if err := ops.Warm(warmCtx); err != nil {
		logger.Warn("Operator catalog warm-up incomplete", "error", err)
	}
	cancelWarm()

	service, err := api.NewEditorService(attrs, ops, api.Options{
		Drafts:      drafts,
		Rules:       client,
		MaxSessions: cfg.Server.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if cfg.Server.SessionIdle > 0 {
		go service.RunExpiry(ctx, time.Minute, cfg.Server.SessionIdle)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 2)

	var opsServer *server.OpsServer
	if cfg.Server.MetricsPort != 0 {
		opsServer = server.NewOpsServer(cfg.Server.Host, cfg.Server.MetricsPort,
			server.NewOpsService(database, service.Sessions, attrs, ops))
		go func() {
			errChan <- opsServer.Start()
		}()
	}

	logger.Info("Starting rulebuilder editor service",
		"version", Version, "host", cfg.Server.Host, "port", cfg.Server.Port,
		"metrics_port", cfg.Server.MetricsPort, "catalog", cfg.Catalog.BaseURL)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	if opsServer != nil {
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown failed", "error", err)
		}
	}
	return grpcServer.Shutdown(shutdownCtx)
}

// requireMigrated refuses to serve against a schema with pending migrations.
func requireMigrated(database *sqlx.DB) error {
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run '%s migrate' first", s.ID, os.Args[0])
		}
	}
	return nil
}
