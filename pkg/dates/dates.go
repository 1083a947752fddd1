package dates

import "time"

// AddMonths shifts a date forward by whole calendar months, preserving the
// day-of-month where possible and clamping to the target month's length
// (Jan 31 + 1 month = Feb 28/29). time.AddDate normalizes overflow instead of
// clamping, which is wrong for due dates.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}
	if max := DaysInMonth(y, time.Month(m)); day > max {
		day = max
	}
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsBetween counts whole calendar months from the month of `from` to the
// month of `to`, ignoring the day-of-month. Negative when `to` is earlier.
func MonthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// MonthName formats a date as a short month label, e.g. "Jan 2024".
func MonthName(t time.Time) string {
	return t.Format("Jan 2006")
}

// StartOfDay truncates a time to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
