package service

import (
	"context"
	"fmt"
	"time"

	"fundboard/internal/database"
	"fundboard/internal/history"
)

type HistoryStore interface {
	ListFunds(ctx context.Context) ([]database.Fund, error)
	GetDailyData(ctx context.Context, codes []string) ([]database.DailyData, error)
}

// BuildHistory loads the stored funds, restricted to fundCode when it is not
// empty, with their full NAV history and aggregates them over period.
func BuildHistory(ctx context.Context, store HistoryStore, fundCode string, period history.Period, now time.Time) (*history.Result, error) {
	funds, err := store.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	holdings := []history.Holding{}
	codes := []string{}
	for _, f := range funds {
		if fundCode != "" && f.FundCode != fundCode {
			continue
		}
		holdings = append(holdings, history.Holding{FundCode: f.FundCode, CostPerShare: f.Cost, Shares: f.Shares})
		codes = append(codes, f.FundCode)
	}

	rows, err := store.GetDailyData(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("get daily data: %w", err)
	}
	observations := map[string][]history.Observation{}
	for _, d := range rows {
		observations[d.FundCode] = append(observations[d.FundCode], history.Observation{
			FundCode:    d.FundCode,
			Date:        d.Date,
			NAV:         d.NAV,
			DailyChange: d.DailyChange,
		})
	}
	return history.Aggregate(holdings, observations, period, now)
}
