package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cadence is the configured recurrence pattern for a schedule
type Cadence string

const (
	// CadenceEvery5Hours runs anchored to elapsed time, not time-of-day
	CadenceEvery5Hours Cadence = "5hours"
	CadenceDaily       Cadence = "daily"
	CadenceWeekly      Cadence = "weekly"
	CadenceBiweekly    Cadence = "biweekly"
	CadenceMonthly     Cadence = "monthly"
)

// subDailyInterval is the elapsed-time step for the sub-daily cadence
const subDailyInterval = 5 * time.Hour

// Valid reports whether c is one of the known cadences. Unknown values
// are still accepted by NextRun (they fall back to sub-daily behavior);
// Valid exists for input validation at the account-facing surface.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceEvery5Hours, CadenceDaily, CadenceWeekly, CadenceBiweekly, CadenceMonthly:
		return true
	}
	return false
}

// NextRun computes the next eligible run time for a schedule.
//
// For the sub-daily cadence the preferred time-of-day is ignored and
// the next run is exactly one interval of elapsed time from now. For
// daily and slower cadences the run is anchored to preferredTime: if
// today's slot is still strictly in the future it is offered, otherwise
// the anchor advances by the cadence's calendar delta. lastRun is part
// of the contract for symmetry with the store but does not influence
// the result; duplicate-run avoidance lives in the processor's
// readiness check.
//
// The returned time is always strictly after now.
func NextRun(cadence Cadence, now time.Time, preferredTime string, lastRun *time.Time) time.Time {
	_ = lastRun

	hour, minute := ParsePreferredTime(preferredTime)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	switch cadence {
	case CadenceDaily:
		if candidate.After(now) {
			return candidate
		}
		return candidate.AddDate(0, 0, 1)
	case CadenceWeekly:
		if candidate.After(now) {
			return candidate
		}
		return candidate.AddDate(0, 0, 7)
	case CadenceBiweekly:
		if candidate.After(now) {
			return candidate
		}
		return candidate.AddDate(0, 0, 14)
	case CadenceMonthly:
		if candidate.After(now) {
			return candidate
		}
		return candidate.AddDate(0, 1, 0)
	default:
		// Covers CadenceEvery5Hours and any unrecognized value. The
		// fallback is intentional: an unknown cadence must keep the
		// scheduler live rather than wedge the schedule, so it behaves
		// like the sub-daily cadence.
		return now.Add(subDailyInterval)
	}
}

// ParsePreferredTime parses an "HH:MM" wall-clock anchor. Malformed or
// out-of-range input falls back to 09:00, mirroring how account input
// has historically been tolerated.
func ParsePreferredTime(s string) (hour, minute int) {
	hour, minute = 9, 0
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return hour, minute
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return hour, minute
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 9, 0
	}
	return h, m
}

// FormatPreferredTime renders an hour and minute back to "HH:MM"
func FormatPreferredTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
