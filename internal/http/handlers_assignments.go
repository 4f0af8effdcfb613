package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	"github.com/campusgate/portal-api/internal/service"
)

// AssignmentHandlers provides HTTP handlers for the assignments screen.
type AssignmentHandlers struct {
	Feeds *service.FeedService

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (h *AssignmentHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type assignmentListResponse struct {
	Assignments []assignment.Assignment `json:"assignments"`
	Summary     assignment.Summary      `json:"summary"`
	Courses     []string                `json:"courses"`
}

// ListAssignments returns the student's assignments filtered by the status
// and course query parameters, together with the summary and course list.
// The summary and courses always cover the full feed so the filter chips
// stay stable while filters narrow the list.
func (h *AssignmentHandlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}

	list, err := h.Feeds.Assignments(r.Context(), snap.Profile.StudentID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	status, course := parseAssignmentFilters(r)
	WriteJSON(w, http.StatusOK, assignmentListResponse{
		Assignments: assignment.Filter(list, status, course),
		Summary:     assignment.Summarize(list),
		Courses:     assignment.DistinctCourses(list),
	})
}

// SubmitAssignment marks one assignment submitted and returns the updated
// record. An unknown id is a 404 and leaves the feed untouched.
func (h *AssignmentHandlers) SubmitAssignment(w http.ResponseWriter, r *http.Request) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}

	assignmentID := r.PathValue("id")
	if assignmentID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("assignment id is required")})
		return
	}

	updated, err := h.Feeds.SubmitAssignment(r.Context(), snap.Profile.StudentID, assignmentID, h.now())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	for _, a := range updated {
		if a.ID == assignmentID {
			WriteJSON(w, http.StatusOK, a)
			return
		}
	}
	WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("assignment not found")})
}
