package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fundboard/internal/history"
	"fundboard/internal/service"

	"github.com/spf13/cobra"
)

var (
	historyFund   string
	historyPeriod string
)

var historyCMD = &cobra.Command{
	Use:   "history",
	Short: "Print the portfolio value series with drawdown and return",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, db, err := openRepo()
		if err != nil {
			return err
		}
		defer db.Close()

		res, err := service.BuildHistory(cmd.Context(), repo, historyFund, history.ParsePeriod(historyPeriod), time.Now())
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), res.Response())
	},
}

func printHistory(out io.Writer, r history.Response) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "date\tvalue\tcost\tprofit\t")
	for _, p := range r.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", p.Date, p.TotalValue, p.TotalCost, p.Profit)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\npoints: %d  return: %s%%  max drawdown: %s%%", r.Stats.DataPoints, r.Stats.PeriodReturn, r.Stats.MaxDrawdown)
	if r.Stats.MaxDrawdownStart != "" {
		fmt.Fprintf(out, " (%s -> %s)", r.Stats.MaxDrawdownStart, r.Stats.MaxDrawdownEnd)
	}
	fmt.Fprintln(out)
	return nil
}

func init() {
	historyCMD.Flags().StringVar(&historyFund, "fund", "", "restrict to one fund code")
	historyCMD.Flags().StringVar(&historyPeriod, "period", "all", "1m, 3m, 6m, 1y or all")
}
