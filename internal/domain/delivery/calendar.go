// Package delivery maintains the delivery calendar, slot selection and the
// same-day eligibility cutoff.
package delivery

import "time"

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartWeekday returns the weekday of the first day of the month.
func StartWeekday(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// Grid returns the calendar cells for a month: StartWeekday empty cells
// (Day == 0) followed by days 1..DaysInMonth in order.
func Grid(year int, month time.Month) []int {
	pad := int(StartWeekday(year, month))
	n := DaysInMonth(year, month)

	cells := make([]int, pad, pad+n)
	for day := 1; day <= n; day++ {
		cells = append(cells, day)
	}
	return cells
}

// Date is a civil calendar date without time zone.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}
