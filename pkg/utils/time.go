package utils

import "time"

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func TruncateToMinutes(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func DatesEqual(t1, t2 time.Time) bool {
	return StartOfDay(t1).Equal(StartOfDay(t2))
}

// IsYesterday reports whether prev falls on the calendar day immediately
// before now; used by the streak counter.
func IsYesterday(prev, now time.Time) bool {
	return DatesEqual(prev.AddDate(0, 0, 1), now)
}
