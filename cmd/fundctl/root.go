package main

import (
	"errors"
	"os"

	"fundboard/internal/database"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = logrus.New()

var rootCMD = &cobra.Command{
	Use:   "fundctl",
	Short: "Maintenance tool for the fund board database",
	Long: `fundctl works directly against the fund board Postgres database.
It can import and export snapshots, pull the latest quotes and print the
portfolio history with its drawdown statistics.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
	},
}

var verbose bool

func Execute() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCMD.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCMD.AddCommand(importCMD, exportCMD, refreshCMD, historyCMD)
}

// openRepo connects to POSTGRES_URL. The caller closes the returned db.
func openRepo() (*database.Repo, *sqlx.DB, error) {
	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		return nil, nil, errors.New("POSTGRES_URL is required")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return database.New(db, logger), db, nil
}
