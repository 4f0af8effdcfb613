package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusgate/portal-api/internal/domain/schedule"
	"github.com/campusgate/portal-api/internal/service"
)

// ScheduleHandlers provides HTTP handlers for the class-schedule screen.
type ScheduleHandlers struct {
	Feeds *service.FeedService
}

func (h *ScheduleHandlers) timetable(w http.ResponseWriter, r *http.Request) (*schedule.Timetable, bool) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return nil, false
	}
	tt, err := h.Feeds.Timetable(r.Context(), snap.Profile.StudentID)
	if err != nil {
		WriteAppError(w, err)
		return nil, false
	}
	return tt, true
}

func (h *ScheduleHandlers) month(w http.ResponseWriter, r *http.Request) (schedule.MonthSchedule, bool) {
	tt, ok := h.timetable(w, r)
	if !ok {
		return schedule.MonthSchedule{}, false
	}
	m, found := tt.Month(r.PathValue("month"))
	if !found {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("month not in timetable")})
		return schedule.MonthSchedule{}, false
	}
	return m, true
}

// ListMonths returns the months the timetable declares, in data order.
func (h *ScheduleHandlers) ListMonths(w http.ResponseWriter, r *http.Request) {
	tt, ok := h.timetable(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"months": tt.AvailableMonths()})
}

type dayResponse struct {
	Date    string           `json:"date"`
	Classes []schedule.Class `json:"classes"`
}

// DayClasses returns the classes on one calendar date of a month. A date
// with no classes is an empty list, not an error.
func (h *ScheduleHandlers) DayClasses(w http.ResponseWriter, r *http.Request) {
	m, ok := h.month(w, r)
	if !ok {
		return
	}

	date, err := time.ParseInLocation(schedule.DateLayout, r.PathValue("date"), time.UTC)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("date must be YYYY-MM-DD")})
		return
	}

	classes := m.ClassesOn(date)
	if classes == nil {
		classes = []schedule.Class{}
	}
	WriteJSON(w, http.StatusOK, dayResponse{Date: date.Format(schedule.DateLayout), Classes: classes})
}

type weeksResponse struct {
	Month string                `json:"month"`
	Weeks [3][]schedule.DayCell `json:"weeks"`
}

// WeekWindow returns the three-week picker window for a month. The cursor
// query parameter anchors the window (default: the month's first day) and
// offset slides it by whole weeks.
func (h *ScheduleHandlers) WeekWindow(w http.ResponseWriter, r *http.Request) {
	m, ok := h.month(w, r)
	if !ok {
		return
	}

	start, end, err := m.Bounds()
	if err != nil {
		WriteAppError(w, err)
		return
	}

	cursor, err := parseDateQuery(r, "cursor", start)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("cursor must be YYYY-MM-DD")})
		return
	}
	offset := parseIntQuery(r, "offset", 0)

	WriteJSON(w, http.StatusOK, weeksResponse{
		Month: m.Month,
		Weeks: schedule.WeekWindow(start, end, cursor, offset),
	})
}
