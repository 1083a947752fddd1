package clock

import "time"

// Clock is the single source of "today" for the reconciliation engine, so
// date-sensitive logic can be pinned in tests.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type realClock struct{}

// New returns a Clock backed by the system time.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Today() time.Time {
	year, month, day := time.Now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Fixed is a Clock frozen at a specific instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

func (f Fixed) Today() time.Time {
	year, month, day := f.T.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
