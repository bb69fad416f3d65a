package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fundboard/internal/models"

	"github.com/spf13/cobra"
)

var importCMD = &cobra.Command{
	Use:   "import [file]",
	Short: "Import funds and NAV history from an export file",
	Long:  `Adds every fund and daily quote of an export file that is not stored yet. Existing funds and quotes are left untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var snap models.Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		if err := snap.Validate(); err != nil {
			return fmt.Errorf("%s: invalid data format: %w", args[0], err)
		}

		repo, db, err := openRepo()
		if err != nil {
			return err
		}
		defer db.Close()

		nf, nd, err := repo.Import(cmd.Context(), snap.Funds, snap.DailyData)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d funds and %d daily quotes\n", nf, nd)
		return nil
	},
}

var exportCMD = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all funds and NAV history to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, db, err := openRepo()
		if err != nil {
			return err
		}
		defer db.Close()

		funds, err := repo.ListFunds(cmd.Context())
		if err != nil {
			return err
		}
		daily, err := repo.ListDailyData(cmd.Context())
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(models.NewSnapshot(funds, daily, time.Now()), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], b, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d funds and %d daily quotes to %s\n", len(funds), len(daily), args[0])
		return nil
	},
}
