package progression

import (
	"time"

	"timalaus_progression/internal/model"
)

// NextReset returns the instant a quest of the given cadence next resets. All computations are
// done in UTC and the result is always strictly after now. Unknown cadences reset daily.
func NextReset(c model.Cadence, now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch c {
	case model.CadenceWeekly:
		dow := int(midnight.Weekday())
		days := 8 - dow
		if dow == 0 {
			days = 1
		}
		return midnight.AddDate(0, 0, days)

	case model.CadenceMonthly:
		return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	default:
		return midnight.AddDate(0, 0, 1)
	}
}

// NextStreak advances a consecutive-day counter for a play at now.
func NextStreak(current int, lastPlayedAt *time.Time, now time.Time) int {
	if lastPlayedAt == nil {
		return 1
	}
	if current < 1 {
		current = 0
	}

	today := utcDay(now)
	last := utcDay(*lastPlayedAt)

	switch {
	case !last.Before(today):
		if current == 0 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(today):
		return current + 1
	default:
		return 1
	}
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
