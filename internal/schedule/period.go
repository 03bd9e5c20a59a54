package schedule

import (
	"fmt"
	"time"
)

// PeriodKey returns the token identifying the quota counting window for
// t, formatted "YYYY-MM". Quotas roll over on calendar-month boundaries.
func PeriodKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ReconcilePeriod returns a copy of s with its quota counter reset if
// the calendar month has changed since the schedule was last touched.
// The second return value reports whether a reset happened and the
// caller must persist the updated record.
//
// Called at the start of every processing attempt so that a schedule
// idle across a month boundary gets its counter reset lazily on first
// touch; there is no separate sweep job.
func ReconcilePeriod(s Schedule, now time.Time) (Schedule, bool) {
	key := PeriodKey(now)
	if s.PeriodKey == key {
		return s, false
	}
	s.PeriodKey = key
	s.PostsThisPeriod = 0
	return s, true
}
