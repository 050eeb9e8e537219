package delivery

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.January, 31},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysInMonth(tt.year, tt.month), "%d-%02d", tt.year, tt.month)
	}
}

func TestGrid_Padding(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		w := int(StartWeekday(2025, month))
		cells := Grid(2025, month)

		require.Len(t, cells, w+DaysInMonth(2025, month))
		for i := range w {
			assert.Zero(t, cells[i], "cell %d of %s should be empty", i, month)
		}
		for i, day := range cells[w:] {
			assert.Equal(t, i+1, day)
		}
	}
}

func TestGrid_KnownMonth(t *testing.T) {
	// September 2024 starts on a Sunday; June 2024 on a Saturday.
	assert.Equal(t, time.Sunday, StartWeekday(2024, time.September))
	assert.Equal(t, 1, Grid(2024, time.September)[0])

	june := Grid(2024, time.June)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 1}, june[:7])
}

func TestSchedule_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	s := NewSchedule(now)

	assert.Equal(t, 2025, s.Year)
	assert.Equal(t, time.March, s.Month)
	assert.Equal(t, Date{Year: 2025, Month: time.March, Day: 10}, s.Date)
	assert.Equal(t, SlotMorning, s.Slot)
	assert.False(t, s.SameDay)
}

func TestSchedule_SelectDate(t *testing.T) {
	s := NewSchedule(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))

	require.NoError(t, s.SelectDate(31))
	assert.Equal(t, 31, s.Date.Day)

	err := s.SelectDate(32)
	var dateErr *InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, 31, dateErr.DaysInMonth)
	assert.Equal(t, 31, s.Date.Day, "selection unchanged")

	require.Error(t, s.SelectDate(0))
	assert.Equal(t, 31, s.Date.Day)
}

func TestSchedule_SelectDateFollowsDisplayedMonth(t *testing.T) {
	s := NewSchedule(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	s.NextMonth()

	require.Error(t, s.SelectDate(30), "February 2025 has 28 days")
	require.NoError(t, s.SelectDate(28))
	assert.Equal(t, Date{Year: 2025, Month: time.February, Day: 28}, s.Date)
}

func TestSchedule_Navigation(t *testing.T) {
	s := NewSchedule(time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC))

	s.NextMonth()
	assert.Equal(t, 2025, s.Year)
	assert.Equal(t, time.January, s.Month)

	s.PrevMonth()
	s.PrevMonth()
	assert.Equal(t, 2024, s.Year)
	assert.Equal(t, time.November, s.Month)

	assert.Equal(t, Date{Year: 2024, Month: time.December, Day: 20}, s.Date, "navigation keeps selection")
}

func TestSchedule_SelectSlot(t *testing.T) {
	s := NewSchedule(time.Now())

	require.NoError(t, s.SelectSlot(SlotEvening))
	assert.Equal(t, SlotEvening, s.Slot)

	require.ErrorIs(t, s.SelectSlot(Slot("midnight")), ErrUnknownSlot)
	assert.Equal(t, SlotEvening, s.Slot)
}

func TestSlot_Window(t *testing.T) {
	start, end := SlotAfternoon.Window()
	assert.Equal(t, 12, start)
	assert.Equal(t, 16, end)

	_, err := ParseSlot("brunch")
	require.ErrorIs(t, err, ErrUnknownSlot)

	slot, err := ParseSlot("evening")
	require.NoError(t, err)
	assert.Equal(t, SlotEvening, slot)
}

func TestSchedule_Confirm(t *testing.T) {
	loc := time.FixedZone("ECT", -5*60*60)
	today := time.Date(2025, 5, 8, 0, 0, 0, 0, loc)

	tests := []struct {
		name    string
		sameDay bool
		day     int
		now     time.Time
		wantErr error
	}{
		{name: "same day before cutoff", sameDay: true, day: 8, now: today.Add(13*time.Hour + 59*time.Minute)},
		{name: "same day at cutoff", sameDay: true, day: 8, now: today.Add(14 * time.Hour), wantErr: ErrSameDayCutoff},
		{name: "same day after cutoff", sameDay: true, day: 8, now: today.Add(18 * time.Hour), wantErr: ErrSameDayCutoff},
		{name: "regular delivery after cutoff", sameDay: false, day: 9, now: today.Add(18 * time.Hour)},
		{name: "date in past", sameDay: false, day: 7, now: today.Add(8 * time.Hour), wantErr: ErrDateInPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchedule(today)
			require.NoError(t, s.SelectDate(tt.day))
			if tt.sameDay {
				s.ToggleSameDay()
			}

			err := s.Confirm(tt.now, DefaultCutoff)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSchedule_ConfirmDSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{name: "spring forward after cutoff", now: time.Date(2025, 3, 9, 14, 30, 0, 0, ny), wantErr: ErrSameDayCutoff},
		{name: "spring forward before cutoff", now: time.Date(2025, 3, 9, 13, 59, 0, 0, ny)},
		{name: "fall back before cutoff", now: time.Date(2025, 11, 2, 13, 30, 0, 0, ny)},
		{name: "fall back at cutoff", now: time.Date(2025, 11, 2, 14, 0, 0, 0, ny), wantErr: ErrSameDayCutoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSchedule(tt.now)
			require.NoError(t, s.SelectDate(tt.now.Day()))
			s.ToggleSameDay()

			err := s.Confirm(tt.now, DefaultCutoff)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSchedule_ToggleSameDay(t *testing.T) {
	s := NewSchedule(time.Now())
	assert.True(t, s.ToggleSameDay())
	assert.False(t, s.ToggleSameDay())
}

func TestDate_Before(t *testing.T) {
	a := Date{Year: 2024, Month: time.December, Day: 31}
	b := Date{Year: 2025, Month: time.January, Day: 1}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, "2024-12-31", a.String())
}
