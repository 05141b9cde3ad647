package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"inkpost-api/config"
	"inkpost-api/database"
	"inkpost-api/utils"
)

var rootCmd = &cobra.Command{
	Use:   "inkpost",
	Short: "Inkpost blogging API",
	Long: `Inkpost serves the blogging HTTP API and manages its database.

Running without a subcommand starts the server.

Examples:
  inkpost                      # same as inkpost serve
  inkpost migrate              # create or update the schema
  inkpost seed --demo 5        # admin user plus five fake authors`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSeedCommand())
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, configures logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	utils.ConfigureLogger(os.Stdout, cfg.LogLevel)

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
