package delivery

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// DefaultCutoff is the local time of day after which same-day orders are
// no longer accepted.
const DefaultCutoff = 14 * time.Hour

var (
	// ErrSameDayCutoff is returned when confirming a same-day delivery at or
	// after the cutoff.
	ErrSameDayCutoff = errors.New("same-day delivery is only available before the daily cutoff")
	// ErrDateInPast is returned when confirming a delivery date before today.
	ErrDateInPast = errors.New("delivery date is in the past")
)

// InvalidDateError reports a day outside the displayed month.
type InvalidDateError struct {
	Day         int
	DaysInMonth int
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("day %d is outside 1..%d", e.Day, e.DaysInMonth)
}

// Schedule is the delivery selection state of a checkout session.
type Schedule struct {
	// Year and Month identify the displayed calendar month.
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Date    Date       `json:"date"`
	Slot    Slot       `json:"slot"`
	SameDay bool       `json:"same_day"`
}

// NewSchedule returns a schedule displaying the month of now, with now's date
// and the morning slot selected.
func NewSchedule(now time.Time) Schedule {
	today := DateOf(now)
	return Schedule{
		Year:  today.Year,
		Month: today.Month,
		Date:  today,
		Slot:  SlotMorning,
	}
}

// NextMonth advances the displayed month. The selected date is kept.
func (s *Schedule) NextMonth() {
	s.shift(1)
}

// PrevMonth moves the displayed month back. The selected date is kept.
func (s *Schedule) PrevMonth() {
	s.shift(-1)
}

func (s *Schedule) shift(delta int) {
	t := time.Date(s.Year, s.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	s.Year, s.Month = t.Year(), t.Month()
}

// Grid returns the cells of the displayed month.
func (s *Schedule) Grid() []int {
	return Grid(s.Year, s.Month)
}

// SelectDate selects a day of the displayed month. Days outside the month
// are rejected without changing state.
func (s *Schedule) SelectDate(day int) error {
	n := DaysInMonth(s.Year, s.Month)
	if day < 1 || day > n {
		return &InvalidDateError{Day: day, DaysInMonth: n}
	}
	s.Date = Date{Year: s.Year, Month: s.Month, Day: day}
	return nil
}

// SelectSlot selects exactly one delivery slot.
func (s *Schedule) SelectSlot(slot Slot) error {
	if !slot.Valid() {
		return errors.Wrapf(ErrUnknownSlot, "slot %q", slot)
	}
	s.Slot = slot
	return nil
}

// ToggleSameDay flips the same-day flag and returns the new value.
func (s *Schedule) ToggleSameDay() bool {
	s.SameDay = !s.SameDay
	return s.SameDay
}

// Confirm checks the schedule against the clock at order time. now must be
// expressed in the shop's location.
func (s *Schedule) Confirm(now time.Time, cutoff time.Duration) error {
	today := DateOf(now)
	if s.Date.Before(today) {
		return errors.Wrapf(ErrDateInPast, "date %s", s.Date)
	}
	if s.SameDay {
		// Wall clock, so DST transition days keep the local cutoff.
		h, m, sec := now.Clock()
		elapsed := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
		if elapsed >= cutoff {
			return ErrSameDayCutoff
		}
	}
	if !s.Slot.Valid() {
		return errors.Wrapf(ErrUnknownSlot, "slot %q", s.Slot)
	}
	return nil
}
