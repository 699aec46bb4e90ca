package schedule

import (
	"time"

	"github.com/dailybrew/replenish/pkg/types"
)

// DateOnly truncates t to UTC midnight. Every delivery date stored by the
// engine goes through this, so date equality works as plain value equality.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped adds calendar months preserving the day of month, clamping
// to the last day of the target month. time.AddDate is not used because it
// normalizes overflow (Jan 31 + 1 month = Mar 2/3) instead of clamping.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// NextDeliveryDate computes the delivery date following anchor for the given
// cadence. Pure and deterministic; weekly +7d, biweekly +14d, monthly +1
// calendar month (day preserving, end-of-month clamped), custom +value units.
func NextDeliveryDate(freq types.Frequency, customValue int, customUnit types.IntervalUnit, anchor time.Time) time.Time {
	a := DateOnly(anchor)
	switch freq {
	case types.FrequencyWeekly:
		return a.AddDate(0, 0, 7)
	case types.FrequencyBiWeekly:
		return a.AddDate(0, 0, 14)
	case types.FrequencyMonthly:
		return addMonthsClamped(a, 1)
	case types.FrequencyCustom:
		if customValue < 1 {
			customValue = 1
		}
		switch customUnit {
		case types.IntervalUnitDays:
			return a.AddDate(0, 0, customValue)
		case types.IntervalUnitWeeks:
			return a.AddDate(0, 0, 7*customValue)
		case types.IntervalUnitMonths:
			return addMonthsClamped(a, customValue)
		}
	}
	// unknown cadences fall back to weekly; creation validates so this is
	// only reachable with hand-edited rows
	return a.AddDate(0, 0, 7)
}
