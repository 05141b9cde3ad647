package cmd

import (
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"inkpost-api/database"
)

const (
	adminEmailFlag    = "admin-email"
	adminPasswordFlag = "admin-password"
	demoFlag          = "demo"
)

var seedFlags = map[string]cobraflags.Flag{
	adminEmailFlag: &cobraflags.StringFlag{
		Name:  adminEmailFlag,
		Value: "admin@inkpost.local",
		Usage: "Email of the administrator account",
	},
	adminPasswordFlag: &cobraflags.StringFlag{
		Name:  adminPasswordFlag,
		Value: "password",
		Usage: "Password of the administrator account",
	},
	demoFlag: &cobraflags.StringFlag{
		Name:  demoFlag,
		Value: "0",
		Usage: "Number of fake authors to create, each with one tag and three posts",
	},
}

func newSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the administrator account and optional demo data",
		RunE:  runSeed,
	}
	cobraflags.RegisterMap(seedCmd, seedFlags)
	return seedCmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	demo, err := strconv.Atoi(seedFlags[demoFlag].GetString())
	if err != nil || demo < 0 {
		return fmt.Errorf("--%s must be a non-negative integer", demoFlag)
	}

	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	if _, err := database.SeedAdmin(db, seedFlags[adminEmailFlag].GetString(), seedFlags[adminPasswordFlag].GetString()); err != nil {
		return err
	}
	if demo > 0 {
		return database.SeedDemo(db, demo, gofakeit.New(0))
	}
	return nil
}
