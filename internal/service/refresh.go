package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fundboard/internal/database"
	"fundboard/internal/history"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type RefreshStore interface {
	ListFunds(ctx context.Context) ([]database.Fund, error)
	UpsertDailyData(ctx context.Context, code string, nav, dailyChange decimal.Decimal, date string) error
}

// Refresher pulls the latest quote of every stored fund into daily_data.
type Refresher struct {
	repo     RefreshStore
	quotes   QuoteProvider
	calendar *Calendar
	log      *logrus.Logger
}

func NewRefresher(repo RefreshStore, quotes QuoteProvider, calendar *Calendar, log *logrus.Logger) *Refresher {
	return &Refresher{repo: repo, quotes: quotes, calendar: calendar, log: log}
}

// Refresh stores the current quote of each fund under now's date and returns
// how many funds were updated.
func (r *Refresher) Refresh(ctx context.Context, now time.Time) (int, error) {
	funds, err := r.repo.ListFunds(ctx)
	if err != nil {
		return 0, fmt.Errorf("list funds: %w", err)
	}
	if len(funds) == 0 {
		r.log.Info("no funds to refresh")
		return 0, nil
	}
	codes := make([]string, 0, len(funds))
	for _, f := range funds {
		codes = append(codes, f.FundCode)
	}

	today := now.Format(history.DateFormat)
	updated := 0
	for _, q := range r.quotes.GetQuotes(ctx, codes) {
		if err := r.repo.UpsertDailyData(ctx, q.FundCode, q.NAV, q.DailyChange, today); err != nil {
			return updated, fmt.Errorf("store quote %s: %w", q.FundCode, err)
		}
		updated++
	}
	return updated, nil
}

// RefreshIfTradingDay is Refresh, skipped on weekends and holidays.
func (r *Refresher) RefreshIfTradingDay(ctx context.Context, now time.Time) (int, bool, error) {
	if !r.calendar.IsTradingDay(now) {
		r.log.Infof("%s is not a trading day, skipping refresh", now.Format(history.DateFormat))
		return 0, false, nil
	}
	n, err := r.Refresh(ctx, now)
	return n, true, err
}

// Start refreshes at each of the given local hours until ctx is done.
func (r *Refresher) Start(ctx context.Context, hours []int) {
	if len(hours) == 0 {
		return
	}
	go func() {
		for {
			next := nextRun(time.Now(), hours)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				r.log.Info("fund refresher stopping")
				return
			case <-timer.C:
				r.log.Infof("running scheduled refresh at %02d:00", next.Hour())
				n, ran, err := r.RefreshIfTradingDay(ctx, time.Now())
				if err != nil {
					r.log.Warnf("scheduled refresh failed: %v", err)
					continue
				}
				if ran {
					r.log.Infof("scheduled refresh completed: %d funds updated", n)
				}
			}
		}
	}()
}

// nextRun returns the first o'clock among hours strictly after now.
func nextRun(now time.Time, hours []int) time.Time {
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	y, m, d := now.Date()
	for day := 0; day < 2; day++ {
		for _, h := range sorted {
			at := time.Date(y, m, d+day, h, 0, 0, 0, now.Location())
			if at.After(now) {
				return at
			}
		}
	}
	return time.Date(y, m, d+1, sorted[0], 0, 0, 0, now.Location())
}
