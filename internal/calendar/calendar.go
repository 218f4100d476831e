// Package calendar provides the month arithmetic used by recurring and
// installment date computation. All produced dates carry a fixed noon UTC
// time-of-day so that timezone-naive serialization cannot shift the day.
package calendar

import "time"

// Noon is the fixed time-of-day carried by every occurrence date.
const Noon = 12

// DaysInMonth returns the number of days in the given 1-indexed month,
// accounting for leap years.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns day limited to the last day of the given month, so an
// anchor of 31 lands on Feb 28/29, Apr 30 and so on.
func ClampDay(day, year, month int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// DateAtNoon builds a date at noon UTC. The day is clamped to the month's
// length rather than rolled into the following month.
func DateAtNoon(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), ClampDay(day, year, month), Noon, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last instants of the given 1-indexed
// month. The end bound is inclusive end-of-day, suitable for BETWEEN-style
// range queries.
func MonthBounds(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year, time.Month(month), DaysInMonth(year, month), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	return start, end
}

// AddMonths adds n whole months to base, preserving the day-of-month where
// possible. Overflow clamps to the shorter target month's last day: Jan 31
// plus one month is Feb 28 (or 29), never Mar 2 or Mar 3.
func AddMonths(base time.Time, n int) time.Time {
	// time.AddDate normalizes overflow by rolling into the next month, so
	// compute the target month first and clamp the day ourselves.
	year, month := base.Year(), int(base.Month())
	month += n
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	return time.Date(year, time.Month(month), ClampDay(base.Day(), year, month),
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}
