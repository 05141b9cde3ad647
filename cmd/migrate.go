package cmd

import (
	"github.com/spf13/cobra"

	"inkpost-api/database"
	"inkpost-api/utils"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			utils.Logger.Info("database migrated")
			return nil
		},
	}
}
