package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period scopes classification and analytics queries: a calendar month, a
// rolling window, or the whole book.
type Period string

const (
	PeriodJanuary   Period = "january"
	PeriodFebruary  Period = "february"
	PeriodMarch     Period = "march"
	PeriodApril     Period = "april"
	PeriodMay       Period = "may"
	PeriodJune      Period = "june"
	PeriodJuly      Period = "july"
	PeriodAugust    Period = "august"
	PeriodSeptember Period = "september"
	PeriodOctober   Period = "october"
	PeriodNovember  Period = "november"
	PeriodDecember  Period = "december"
	PeriodLast3     Period = "last_3_months"
	PeriodLast6     Period = "last_6_months"
	PeriodAll       Period = "all"
)

var periodMonths = map[Period]time.Month{
	PeriodJanuary:   time.January,
	PeriodFebruary:  time.February,
	PeriodMarch:     time.March,
	PeriodApril:     time.April,
	PeriodMay:       time.May,
	PeriodJune:      time.June,
	PeriodJuly:      time.July,
	PeriodAugust:    time.August,
	PeriodSeptember: time.September,
	PeriodOctober:   time.October,
	PeriodNovember:  time.November,
	PeriodDecember:  time.December,
}

// ParsePeriod validates a period string from the query boundary.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodMonths[p]; ok {
		return p, nil
	}
	switch p {
	case PeriodLast3, PeriodLast6, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unsupported period: %q", s)
}

// Month resolves a calendar-month period to its month number; ok is false for
// rolling windows and all-time.
func (p Period) Month() (time.Month, bool) {
	m, ok := periodMonths[p]
	return m, ok
}

// RollingMonths returns the window size for rolling periods, 0 otherwise.
func (p Period) RollingMonths() int {
	switch p {
	case PeriodLast3:
		return 3
	case PeriodLast6:
		return 6
	}
	return 0
}
