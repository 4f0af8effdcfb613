package schedule

import (
	"fmt"
	"time"
)

// DayCell is one cell of the week-picker.
type DayCell struct {
	Weekday string    `json:"weekday"`
	Date    time.Time `json:"date"`
	InMonth bool      `json:"inMonth"`
}

// dateOnly normalizes t to midnight UTC so calendar comparisons ignore
// the time of day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the Sunday at or before t, at midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	d := dateOnly(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func inRange(d, start, end time.Time) bool {
	d = dateOnly(d)
	return !d.Before(dateOnly(start)) && !d.After(dateOnly(end))
}

// WeekWindow builds the previous, current, and next week rows of the
// week-picker, sliding from cursor by weekOffset weeks. Each row holds seven
// day cells starting on Sunday; InMonth is an inclusive comparison against
// [monthStart, monthEnd]. The rows are recomputed on every call, never
// mutated in place.
func WeekWindow(monthStart, monthEnd, cursor time.Time, weekOffset int) [3][]DayCell {
	base := StartOfWeek(cursor.AddDate(0, 0, 7*weekOffset))

	var window [3][]DayCell
	for adj := -1; adj <= 1; adj++ {
		row := make([]DayCell, 7)
		weekStart := base.AddDate(0, 0, 7*adj)
		for i := 0; i < 7; i++ {
			date := weekStart.AddDate(0, 0, i)
			row[i] = DayCell{
				Weekday: date.Format("Mon"),
				Date:    date,
				InMonth: inRange(date, monthStart, monthEnd),
			}
		}
		window[adj+1] = row
	}
	return window
}

// Cursor drives the schedule screen's coupled month, week, and day pickers.
//
// Every paging attempt is atomic: the candidate position is computed and
// validated first, and the cursor either commits it or stays exactly where it
// was. Consumers never observe a partially applied move.
type Cursor struct {
	timetable  Timetable
	monthIndex int

	monthStart time.Time
	monthEnd   time.Time
	selected   time.Time
	weekOffset int
}

// NewCursor positions a cursor on the first available month's first day.
func NewCursor(t Timetable) (*Cursor, error) {
	c := &Cursor{timetable: t}
	if err := c.enterMonth(0); err != nil {
		return nil, err
	}
	return c, nil
}

// enterMonth moves to the month at index and resets the selection to its
// first day. The caller validates index.
func (c *Cursor) enterMonth(index int) error {
	if index < 0 || index >= len(c.timetable.Months) {
		return errMonthIndex(index, len(c.timetable.Months))
	}
	start, end, err := c.timetable.Months[index].Bounds()
	if err != nil {
		return err
	}
	c.monthIndex = index
	c.monthStart = start
	c.monthEnd = end
	c.selected = start
	c.weekOffset = 0
	return nil
}

// Month returns the currently selected month's schedule.
func (c *Cursor) Month() MonthSchedule { return c.timetable.Months[c.monthIndex] }

// MonthIndex returns the index of the selected month within AvailableMonths.
func (c *Cursor) MonthIndex() int { return c.monthIndex }

// Selected returns the selected date.
func (c *Cursor) Selected() time.Time { return c.selected }

// WeekOffset returns the week-picker offset from the month's first week.
func (c *Cursor) WeekOffset() int { return c.weekOffset }

// Weeks derives the three-week picker window for the current position.
// The window slides from the month start, so the picker stays stable while
// days within a visible week are selected.
func (c *Cursor) Weeks() [3][]DayCell {
	return WeekWindow(c.monthStart, c.monthEnd, c.monthStart, c.weekOffset)
}

// DayWindow returns the yesterday/today/tomorrow triptych around the
// selected date.
func (c *Cursor) DayWindow() [3]time.Time {
	return [3]time.Time{
		c.selected.AddDate(0, 0, -1),
		c.selected,
		c.selected.AddDate(0, 0, 1),
	}
}

// PrevMonth retreats to the previous available month. Out-of-range requests
// are no-ops; the cursor reports whether it moved.
func (c *Cursor) PrevMonth() bool {
	if c.monthIndex == 0 {
		return false
	}
	return c.enterMonth(c.monthIndex-1) == nil
}

// NextMonth advances to the next available month. Out-of-range requests are
// no-ops; the cursor reports whether it moved.
func (c *Cursor) NextMonth() bool {
	if c.monthIndex >= len(c.timetable.Months)-1 {
		return false
	}
	return c.enterMonth(c.monthIndex+1) == nil
}

// SelectDate moves the selection to d when d is inside the current month.
func (c *Cursor) SelectDate(d time.Time) bool {
	if !inRange(d, c.monthStart, c.monthEnd) {
		return false
	}
	c.selected = dateOnly(d)
	return true
}

// StepDay moves the selection delta days (±1 from the day swiper). A step
// that would leave the current month is rejected and the cursor snaps back
// unchanged. A step that crosses a week boundary inside the month drags the
// week-picker offset along so both pickers stay in sync.
func (c *Cursor) StepDay(delta int) bool {
	candidate := c.selected.AddDate(0, 0, delta)
	if !inRange(candidate, c.monthStart, c.monthEnd) {
		return false
	}
	if !StartOfWeek(candidate).Equal(StartOfWeek(c.selected)) {
		if delta > 0 {
			c.weekOffset++
		} else {
			c.weekOffset--
		}
	}
	c.selected = candidate
	return true
}

// SwipeWeek slides the week-picker delta weeks (±1 from the week swiper).
// The candidate week must contain at least one day of the current month,
// otherwise the swipe is rejected. On commit the selected date follows the
// window and is clamped to the month boundary when the plain shift would
// leave it.
func (c *Cursor) SwipeWeek(delta int) bool {
	candidate := c.selected.AddDate(0, 0, 7*delta)
	weekStart := StartOfWeek(candidate)
	weekEnd := weekStart.AddDate(0, 0, 6)

	// The week overlaps the month iff it starts before the month ends and
	// ends after the month starts.
	if weekStart.After(dateOnly(c.monthEnd)) || weekEnd.Before(dateOnly(c.monthStart)) {
		return false
	}

	if !inRange(candidate, c.monthStart, c.monthEnd) {
		if delta > 0 {
			candidate = dateOnly(c.monthEnd)
		} else {
			candidate = dateOnly(c.monthStart)
		}
	}

	c.weekOffset += delta
	c.selected = dateOnly(candidate)
	return true
}

func errMonthIndex(index, n int) error {
	return fmt.Errorf("month index %d out of range [0, %d)", index, n)
}
