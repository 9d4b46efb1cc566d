package model

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar month in UTC, stored as "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return m.Start().Format(monthLayout)
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the month.
func (m Month) End() time.Time {
	return m.Next().Start().Add(-time.Nanosecond)
}

func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

func (m Month) Before(other Month) bool {
	return m.Start().Before(other.Start())
}
