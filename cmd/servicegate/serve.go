package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkemmer/servicegate/internal/api"
	"github.com/dkemmer/servicegate/internal/audit"
	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/infrastructure/database"
	"github.com/dkemmer/servicegate/internal/infrastructure/logging"
	"github.com/dkemmer/servicegate/internal/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the servicegate HTTP API server",
	Long: `Start the HTTP API server. The server exposes configuration
validation, a masked configuration view, token encode/decode, and the
audit trail under /api/v1. It runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe is the server lifecycle, separated from the cobra wiring
// for testability. It returns nil on clean shutdown.
func runServe(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting servicegate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer func() {
		log.Info("closing audit store")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing audit store", "error", closeErr)
		}
	}()
	log.Info("audit store connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("audit store migrations complete")

	manager, err := security.NewManager(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initialising security manager: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:   cfg,
		Logger:   log,
		Security: manager,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}
