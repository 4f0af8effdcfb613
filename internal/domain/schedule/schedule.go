package schedule

// Package schedule contains the pure derivation logic for the class-schedule
// screen: the month→day→classes timetable structure, calendar week windowing,
// and the coupled month/week/day paging cursor.

import (
	"time"

	apperrors "github.com/campusgate/portal-api/internal/errors"
)

const (
	// MonthLayout is the format of MonthSchedule.Month.
	MonthLayout = "2006-01"
	// DateLayout is the format of DaySchedule.Date.
	DateLayout = "2006-01-02"
)

// Class is one scheduled class session.
type Class struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Code      string `json:"code"`
	Room      string `json:"room"`
	Teacher   string `json:"teacher"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Color     string `json:"color"`
}

// DaySchedule binds the classes of a single calendar date.
type DaySchedule struct {
	Date    string  `json:"date"`
	Classes []Class `json:"classes"`
}

// MonthSchedule holds one declared month of the timetable.
// Every class belongs to exactly one date within exactly one month.
type MonthSchedule struct {
	Month    string        `json:"month"`
	Schedule []DaySchedule `json:"schedule"`
}

// Timetable is the full month-partitioned schedule.
type Timetable struct {
	Months []MonthSchedule `json:"months"`
}

// AvailableMonths returns the declared months in data order.
// The set is derived from the data, never hardcoded.
func (t Timetable) AvailableMonths() []string {
	months := make([]string, len(t.Months))
	for i, m := range t.Months {
		months[i] = m.Month
	}
	return months
}

// Month returns the schedule for the given month string.
func (t Timetable) Month(month string) (MonthSchedule, bool) {
	for _, m := range t.Months {
		if m.Month == month {
			return m, true
		}
	}
	return MonthSchedule{}, false
}

// Bounds returns the first and last calendar day of the month, both at
// midnight UTC.
func (m MonthSchedule) Bounds() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(MonthLayout, m.Month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "invalid month %q", m.Month)
	}
	end = start.AddDate(0, 1, -1)
	return start, end, nil
}

// ClassesOn returns the classes scheduled on the given date, by exact
// calendar-date match. An absent date yields an empty list.
func (m MonthSchedule) ClassesOn(date time.Time) []Class {
	want := date.Format(DateLayout)
	for _, d := range m.Schedule {
		if d.Date == want {
			return d.Classes
		}
	}
	return nil
}
