package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	"github.com/campusgate/portal-api/internal/domain/schedule"
)

// parseAssignmentFilters extracts the status and course filters from the
// query string. Absent parameters fall back to the wildcard values, so a
// bare request returns the full list.
func parseAssignmentFilters(r *http.Request) (status, course string) {
	q := r.URL.Query()
	status = strings.TrimSpace(q.Get("status"))
	if status == "" {
		status = assignment.StatusAll
	}
	course = strings.TrimSpace(q.Get("course"))
	if course == "" {
		course = assignment.CourseAll
	}
	return status, course
}

// parseIntQuery reads an integer query parameter, falling back to def when
// the parameter is absent or malformed.
func parseIntQuery(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// parseDateQuery reads a calendar-date query parameter, falling back to def
// when absent. A malformed date is reported to the caller.
func parseDateQuery(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	return time.ParseInLocation(schedule.DateLayout, raw, time.UTC)
}
