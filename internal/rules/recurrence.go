package rules

import (
	"fmt"
	"time"

	"stride/internal/domain"
)

// DateLayout is the ISO calendar-date form used for target and end dates.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ValidatePattern enforces the recurrence invariants: a known frequency, a
// non-empty weekly day set with days in 0..6, a monthly day-of-month in 1..31
// and an end date that is parseable and not before today.
func ValidatePattern(p *domain.RecurrencePattern, now time.Time) error {
	if p == nil {
		return &RecurrencePatternError{Reason: "pattern is required"}
	}
	switch p.Frequency {
	case domain.FreqDaily, domain.FreqWeekly, domain.FreqMonthly:
	default:
		return &RecurrencePatternError{Reason: fmt.Sprintf("frequency %q must be daily, weekly or monthly", p.Frequency)}
	}
	if p.Frequency == domain.FreqWeekly && p.DaysOfWeek != nil {
		if len(p.DaysOfWeek) == 0 {
			return &RecurrencePatternError{Reason: "weekly day set must name at least one day"}
		}
		for _, d := range p.DaysOfWeek {
			if d < 0 || d > 6 {
				return &RecurrencePatternError{Reason: fmt.Sprintf("weekly day %d out of range 0-6", d)}
			}
		}
	}
	if p.Frequency == domain.FreqMonthly && p.DayOfMonth != nil {
		if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
			return &RecurrencePatternError{Reason: fmt.Sprintf("day of month %d out of range 1-31", *p.DayOfMonth)}
		}
	}
	if p.EndDate != nil {
		end, err := ParseDate(*p.EndDate)
		if err != nil {
			return &RecurrencePatternError{Reason: fmt.Sprintf("end date %q is not a valid date", *p.EndDate)}
		}
		if end.Before(dateOnly(now)) {
			return &RecurrencePatternError{Reason: fmt.Sprintf("end date %s is in the past", *p.EndDate)}
		}
	}
	return nil
}

// NextOccurrence computes the next due date after from, or false when the
// recurrence has ended. A monthly pattern whose configured day is still ahead
// in from's month lands there; otherwise it advances a month. Month arithmetic
// clamps to the last valid day of the target month, so a day-31 pattern lands
// on Feb 28/29 rather than rolling into March.
func NextOccurrence(p *domain.RecurrencePattern, from time.Time) (time.Time, bool) {
	from = dateOnly(from)
	end, hasEnd := endDate(p)
	if hasEnd && !from.Before(end) {
		return time.Time{}, false
	}
	var next time.Time
	switch p.Frequency {
	case domain.FreqDaily:
		next = from.AddDate(0, 0, 1)
	case domain.FreqWeekly:
		if len(p.DaysOfWeek) > 0 {
			found := false
			for i := 1; i <= 7; i++ {
				candidate := from.AddDate(0, 0, i)
				if weekdayInSet(candidate.Weekday(), p.DaysOfWeek) {
					next = candidate
					found = true
					break
				}
			}
			if !found {
				// unreachable with a validated day set
				return time.Time{}, false
			}
		} else {
			next = from.AddDate(0, 0, 7)
		}
	case domain.FreqMonthly:
		day := from.Day()
		if p.DayOfMonth != nil {
			day = *p.DayOfMonth
		}
		// A configured day still ahead in the current month is the next
		// occurrence; otherwise advance a month. The same-month candidate
		// must be strictly after from, or clamping could return from itself.
		if c := sameMonthClamped(from, day); c.After(from) {
			next = c
		} else {
			next = nextMonthClamped(from, day)
		}
	default:
		return time.Time{}, false
	}
	if hasEnd && next.After(end) {
		return time.Time{}, false
	}
	return next, true
}

// ShouldCreateInstance decides whether a recurring action is due a fresh
// instance on checkDate, given the date its last instance was created.
func ShouldCreateInstance(p *domain.RecurrencePattern, checkDate, lastOccurrence time.Time) bool {
	checkDate = dateOnly(checkDate)
	lastOccurrence = dateOnly(lastOccurrence)
	if end, ok := endDate(p); ok && checkDate.After(end) {
		return false
	}
	if checkDate.Equal(lastOccurrence) {
		return false
	}
	switch p.Frequency {
	case domain.FreqDaily:
		return true
	case domain.FreqWeekly:
		if len(p.DaysOfWeek) > 0 {
			return weekdayInSet(checkDate.Weekday(), p.DaysOfWeek)
		}
		return checkDate.Weekday() == lastOccurrence.Weekday()
	case domain.FreqMonthly:
		if p.DayOfMonth != nil {
			return checkDate.Day() == *p.DayOfMonth
		}
		return checkDate.Day() == lastOccurrence.Day()
	}
	return false
}

func endDate(p *domain.RecurrencePattern) (time.Time, bool) {
	if p == nil || p.EndDate == nil {
		return time.Time{}, false
	}
	end, err := ParseDate(*p.EndDate)
	if err != nil {
		return time.Time{}, false
	}
	return end, true
}

func weekdayInSet(wd time.Weekday, set []int) bool {
	for _, d := range set {
		if int(wd) == d {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sameMonthClamped sets the day within from's month, clamped to its last day.
func sameMonthClamped(from time.Time, day int) time.Time {
	if max := daysInMonth(from.Year(), from.Month()); day > max {
		day = max
	}
	return time.Date(from.Year(), from.Month(), day, 0, 0, 0, 0, time.UTC)
}

// nextMonthClamped advances one calendar month and sets the day, clamped to
// the last day of that month.
func nextMonthClamped(from time.Time, day int) time.Time {
	firstOfNext := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	if max := daysInMonth(firstOfNext.Year(), firstOfNext.Month()); day > max {
		day = max
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
