// Package main is the entry point for the soundscape mixer.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/zwfm-soundscape/internal/config"
	"github.com/oszuidwest/zwfm-soundscape/internal/database"
	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
	"github.com/oszuidwest/zwfm-soundscape/pkg/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "soundscape",
	Short: "Slot-based ambient soundscape mixer",
	Long: `Soundscape mixes looping ambient sounds over a fixed set of slots.
Sounds, presets and the live mix are controlled over an HTTP API.`,
	Version: version.Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the playback engine",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

// setup loads the configuration and starts the logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Log configuration (without sensitive data)
	log.Printf("Database config: Host=%s, Port=%d, User=%s, Database=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Database)

	if err := logger.Initialize(cfg.LogLevel, !cfg.Environment.IsProduction()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection: %v", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}

	v, dirty, err := database.MigrationVersion(db)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
