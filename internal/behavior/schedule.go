package behavior

import "time"

// Weekly reset happens Monday 07:30 UTC.
const (
	WeeklyResetDay    = time.Monday
	WeeklyResetHour   = 7
	WeeklyResetMinute = 30
)

// NextDailyReset returns the next UTC midnight after now.
func NextDailyReset(now time.Time) time.Time {
	now = now.UTC()
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// NextWeeklyReset returns the next Monday 07:30 UTC. Interacting on a Monday
// before (or exactly at) 07:30 resets later the same day.
func NextWeeklyReset(now time.Time) time.Time {
	now = now.UTC()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	resetOffset := time.Duration(WeeklyResetHour)*time.Hour + time.Duration(WeeklyResetMinute)*time.Minute

	days := (int(WeeklyResetDay) - int(now.Weekday()) + 7) % 7
	if days == 0 && now.Sub(midnight) > resetOffset {
		days = 7
	}

	return time.Date(y, m, d+days, WeeklyResetHour, WeeklyResetMinute, 0, 0, time.UTC)
}
