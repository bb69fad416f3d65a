// Package history merges per-fund NAV series into a single portfolio value
// series and derives drawdown and return statistics from it.
package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Holding is a position in one fund.
type Holding struct {
	FundCode     string
	CostPerShare decimal.Decimal
	Shares       decimal.Decimal
}

// Observation is one published NAV of a fund. Date is YYYY-MM-DD.
type Observation struct {
	FundCode    string
	Date        string
	NAV         decimal.Decimal
	DailyChange decimal.Decimal
}

// Point is the combined portfolio on one date.
//
// NAV is whatever the last fund processed for that date published; it is for
// display only and is not a portfolio NAV.
type Point struct {
	Date       string
	TotalValue decimal.Decimal
	TotalCost  decimal.Decimal
	Profit     decimal.Decimal
	NAV        decimal.Decimal
}

type Stats struct {
	MaxDrawdown      decimal.Decimal
	MaxDrawdownStart string
	MaxDrawdownEnd   string
	PeriodReturn     decimal.Decimal
	PointCount       int
}

type Result struct {
	Series []Point
	Stats  Stats
}

// ValidationError reports an input value the aggregator refuses to use.
type ValidationError struct {
	FundCode string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fund %s: invalid %s: %s", e.FundCode, e.Field, e.Reason)
}

// DecimalFromFloat converts v, rejecting NaN and infinities.
func DecimalFromFloat(fundCode, field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, &ValidationError{FundCode: fundCode, Field: field, Reason: "not a finite number"}
	}
	return decimal.NewFromFloat(v), nil
}

// Aggregate builds the portfolio series for holdings over period.
// observations holds the full history of each fund keyed by fund code; only
// dates on or after the period cutoff are used. Holdings are processed in
// the order given.
func Aggregate(holdings []Holding, observations map[string][]Observation, period Period, now time.Time) (*Result, error) {
	if err := validate(holdings, observations); err != nil {
		return nil, err
	}
	cutoff, bounded := period.Cutoff(now)

	index := map[string]int{}
	var series []Point
	for _, h := range holdings {
		cost := h.CostPerShare.Mul(h.Shares)
		for _, o := range observations[h.FundCode] {
			if bounded && o.Date < cutoff {
				continue
			}
			i, ok := index[o.Date]
			if !ok {
				i = len(series)
				index[o.Date] = i
				series = append(series, Point{Date: o.Date})
			}
			p := &series[i]
			p.TotalValue = p.TotalValue.Add(o.NAV.Mul(h.Shares))
			p.TotalCost = p.TotalCost.Add(cost)
			p.NAV = o.NAV
		}
	}

	for i := range series {
		series[i].Profit = series[i].TotalValue.Sub(series[i].TotalCost)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	if series == nil {
		series = []Point{}
	}

	stats := drawdown(series)
	stats.PeriodReturn = periodReturn(series)
	stats.PointCount = len(series)
	return &Result{Series: series, Stats: stats}, nil
}

func validate(holdings []Holding, observations map[string][]Observation) error {
	for _, h := range holdings {
		if h.CostPerShare.IsNegative() {
			return &ValidationError{FundCode: h.FundCode, Field: "cost", Reason: "must not be negative"}
		}
		if h.Shares.IsNegative() {
			return &ValidationError{FundCode: h.FundCode, Field: "shares", Reason: "must not be negative"}
		}
		for _, o := range observations[h.FundCode] {
			if o.NAV.IsNegative() {
				return &ValidationError{FundCode: h.FundCode, Field: "nav", Reason: "negative on " + o.Date}
			}
		}
	}
	return nil
}

// drawdown scans a date-sorted series for the largest fall from a running
// peak. Equal drawdowns keep the earliest window.
func drawdown(series []Point) Stats {
	var s Stats
	if len(series) < 2 {
		return s
	}
	peak := series[0].TotalValue
	peakDate := series[0].Date
	for _, p := range series[1:] {
		if p.TotalValue.GreaterThan(peak) {
			peak = p.TotalValue
			peakDate = p.Date
			continue
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(p.TotalValue).Div(peak).Mul(hundred)
		if dd.GreaterThan(s.MaxDrawdown) {
			s.MaxDrawdown = dd
			s.MaxDrawdownStart = peakDate
			s.MaxDrawdownEnd = p.Date
		}
	}
	return s
}

func periodReturn(series []Point) decimal.Decimal {
	if len(series) < 2 {
		return decimal.Zero
	}
	first := series[0].TotalValue
	if first.IsZero() {
		return decimal.Zero
	}
	last := series[len(series)-1].TotalValue
	return last.Sub(first).Div(first).Mul(hundred)
}
