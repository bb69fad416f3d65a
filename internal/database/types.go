package database

import (
	"time"

	"github.com/shopspring/decimal"
)

type Fund struct {
	ID        int64           `db:"id" json:"id"`
	FundCode  string          `db:"fund_code" json:"fundCode"`
	FundName  string          `db:"fund_name" json:"fundName"`
	Cost      decimal.Decimal `db:"cost" json:"cost"`
	Shares    decimal.Decimal `db:"shares" json:"shares"`
	Note      *string         `db:"note" json:"note"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// DailyData is one stored NAV quote. Date is YYYY-MM-DD.
type DailyData struct {
	ID          int64           `db:"id" json:"id"`
	FundCode    string          `db:"fund_code" json:"fundCode"`
	NAV         decimal.Decimal `db:"nav" json:"nav"`
	DailyChange decimal.Decimal `db:"daily_change" json:"dailyChange"`
	Date        string          `db:"date" json:"date"`
}
