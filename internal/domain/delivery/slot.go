package delivery

import "github.com/go-faster/errors"

// Slot is a delivery time window.
type Slot string

const (
	// SlotMorning delivers between 9:00 and 12:00.
	SlotMorning Slot = "morning"
	// SlotAfternoon delivers between 12:00 and 16:00.
	SlotAfternoon Slot = "afternoon"
	// SlotEvening delivers between 16:00 and 20:00.
	SlotEvening Slot = "evening"
)

// Slots lists all slots in display order.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotEvening}

// ErrUnknownSlot is returned when selecting a slot that does not exist.
var ErrUnknownSlot = errors.New("unknown delivery slot")

// Window returns the slot's start and end hour in local time.
func (s Slot) Window() (start, end int) {
	switch s {
	case SlotMorning:
		return 9, 12
	case SlotAfternoon:
		return 12, 16
	case SlotEvening:
		return 16, 20
	default:
		return 0, 0
	}
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	start, end := s.Window()
	return end > start
}

// ParseSlot validates a slot identifier.
func ParseSlot(v string) (Slot, error) {
	s := Slot(v)
	if !s.Valid() {
		return "", errors.Wrapf(ErrUnknownSlot, "slot %q", v)
	}
	return s, nil
}
