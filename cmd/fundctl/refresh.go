package main

import (
	"fmt"
	"time"

	"fundboard/internal/service"

	"github.com/spf13/cobra"
)

var (
	quoteBaseURL string
	force        bool
)

var refreshCMD = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch today's quote of every stored fund",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, db, err := openRepo()
		if err != nil {
			return err
		}
		defer db.Close()

		quotes := service.NewQuoteClient(quoteBaseURL, 10*time.Second, 300*time.Millisecond, logger)
		refresher := service.NewRefresher(repo, quotes, service.NewCalendar(service.DefaultHolidays), logger)

		now := time.Now()
		var n int
		if force {
			n, err = refresher.Refresh(cmd.Context(), now)
		} else {
			var ran bool
			n, ran, err = refresher.RefreshIfTradingDay(cmd.Context(), now)
			if err == nil && !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "not a trading day; use --force to refresh anyway")
				return nil
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d funds updated\n", n)
		return nil
	},
}

func init() {
	refreshCMD.Flags().StringVar(&quoteBaseURL, "quote-url", service.DefaultQuoteBaseURL, "base URL of the quote source")
	refreshCMD.Flags().BoolVar(&force, "force", false, "refresh even on weekends and holidays")
}
