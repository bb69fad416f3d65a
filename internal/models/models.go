package models

import (
	"errors"
	"fmt"
	"time"

	"fundboard/internal/database"
	"fundboard/internal/history"
)

const SnapshotVersion = "1.0"

// Snapshot is the export/import document of the whole store.
type Snapshot struct {
	Version    string               `json:"version"`
	ExportDate string               `json:"exportDate"`
	Funds      []database.Fund      `json:"funds"`
	DailyData  []database.DailyData `json:"dailyData"`
}

func NewSnapshot(funds []database.Fund, daily []database.DailyData, now time.Time) Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		ExportDate: now.UTC().Format(time.RFC3339),
		Funds:      funds,
		DailyData:  daily,
	}
}

// Validate checks an imported snapshot against the rules enforced when funds
// are created by hand.
func (s *Snapshot) Validate() error {
	if s.Funds == nil {
		return errors.New("funds are missing")
	}
	for i, f := range s.Funds {
		switch {
		case f.FundCode == "":
			return fmt.Errorf("fund %d: fundCode is required", i)
		case f.Cost.IsNegative():
			return fmt.Errorf("fund %s: cost must not be negative", f.FundCode)
		case f.Shares.IsNegative():
			return fmt.Errorf("fund %s: shares must not be negative", f.FundCode)
		}
	}
	for i, d := range s.DailyData {
		if d.FundCode == "" {
			return fmt.Errorf("daily data %d: fundCode is required", i)
		}
		if d.NAV.IsNegative() {
			return fmt.Errorf("daily data %s %s: nav must not be negative", d.FundCode, d.Date)
		}
		if _, err := time.Parse(history.DateFormat, d.Date); err != nil {
			return fmt.Errorf("daily data %s: invalid date %q", d.FundCode, d.Date)
		}
	}
	return nil
}

type StatsResponse struct {
	TotalCost       string `json:"totalCost"`
	TotalValue      string `json:"totalValue"`
	TotalProfit     string `json:"totalProfit"`
	TotalProfitRate string `json:"totalProfitRate"`
	FundCount       int    `json:"fundCount"`
	ProfitCount     int    `json:"profitCount"`
	LossCount       int    `json:"lossCount"`
}
