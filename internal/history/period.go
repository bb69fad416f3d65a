package history

import "time"

// DateFormat is the layout of every date key in a series.
const DateFormat = "2006-01-02"

type Period string

const (
	OneMonth    Period = "1m"
	ThreeMonths Period = "3m"
	SixMonths   Period = "6m"
	OneYear     Period = "1y"
	All         Period = "all"
)

// ParsePeriod never fails: anything it does not recognise is All.
func ParsePeriod(code string) Period {
	switch p := Period(code); p {
	case OneMonth, ThreeMonths, SixMonths, OneYear:
		return p
	default:
		return All
	}
}

// Cutoff returns the first calendar date included in the window ending at
// now, formatted as YYYY-MM-DD. ok is false for All.
//
// Months are subtracted on the calendar and the day is clamped to the end of
// the target month, so Mar 31 minus one month is the last day of February.
func (p Period) Cutoff(now time.Time) (cutoff string, ok bool) {
	var months int
	switch p {
	case OneMonth:
		months = 1
	case ThreeMonths:
		months = 3
	case SixMonths:
		months = 6
	case OneYear:
		months = 12
	default:
		return "", false
	}
	return subMonths(now, months).Format(DateFormat), true
}

func subMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
