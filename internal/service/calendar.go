package service

import (
	"strings"
	"time"

	"fundboard/internal/history"
)

// DefaultHolidays are the 2025 weekday closures of the mainland exchanges.
var DefaultHolidays = []string{
	"2025-01-01", "2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31", "2025-02-01", "2025-02-02", "2025-02-03", "2025-02-04",
	"2025-04-04", "2025-04-05", "2025-04-06",
	"2025-05-01", "2025-05-02", "2025-05-03", "2025-05-04", "2025-05-05",
	"2025-05-31", "2025-06-01", "2025-06-02",
	"2025-10-01", "2025-10-02", "2025-10-03", "2025-10-04", "2025-10-05", "2025-10-06", "2025-10-07", "2025-10-08",
}

type Calendar struct {
	holidays map[string]struct{}
}

func NewCalendar(holidays []string) *Calendar {
	c := &Calendar{holidays: map[string]struct{}{}}
	for _, h := range holidays {
		if h = strings.TrimSpace(h); h != "" {
			c.holidays[h] = struct{}{}
		}
	}
	return c
}

// IsTradingDay reports whether quotes are published on t's calendar day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, closed := c.holidays[t.Format(history.DateFormat)]
	return !closed
}
