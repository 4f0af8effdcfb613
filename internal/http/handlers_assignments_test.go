package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	"github.com/campusgate/portal-api/internal/ports"
)

func seedAssignmentFeed(f *apiFixture) {
	f.docs.Put("assignments", apiStudent, ports.Document{
		"items": []any{
			map[string]any{
				"id": "a1", "title": "Project Proposal", "course": "Software Engineering",
				"status": "Pending", "dueDate": "2024-12-05T23:59:00Z",
			},
			map[string]any{
				"id": "a2", "title": "Lab Report", "course": "Databases",
				"status": "Overdue", "dueDate": "2024-11-20T23:59:00Z",
			},
			map[string]any{
				"id": "a3", "title": "Quiz 3", "course": "Databases",
				"status": "Submitted", "dueDate": "2024-11-10T23:59:00Z",
				"submittedAt": "2024-11-09T18:00:00Z",
			},
		},
	})
}

func TestListAssignments(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)
	seedAssignmentFeed(f)

	rec := f.do(t, http.MethodGet, "/api/assignments", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[assignmentListResponse](t, rec)
	assert.Len(t, body.Assignments, 3)
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, 1, body.Summary.Submitted)
	assert.Equal(t, 33, body.Summary.CompletionPercent)
	assert.Equal(t, []string{assignment.CourseAll, "Software Engineering", "Databases"}, body.Courses)
}

func TestListAssignments_Filtered(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)
	seedAssignmentFeed(f)

	rec := f.do(t, http.MethodGet, "/api/assignments?status=Overdue&course=Databases", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[assignmentListResponse](t, rec)
	require.Len(t, body.Assignments, 1)
	assert.Equal(t, "a2", body.Assignments[0].ID)

	// Summary and courses still cover the whole feed.
	assert.Equal(t, 3, body.Summary.Total)
	assert.Len(t, body.Courses, 3)
}

func TestListAssignments_UnknownFilterMatchesNothing(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)
	seedAssignmentFeed(f)

	rec := f.do(t, http.MethodGet, "/api/assignments?status=Archived", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[assignmentListResponse](t, rec)
	assert.Empty(t, body.Assignments)
}

func TestListAssignments_EmptyFeed(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)

	rec := f.do(t, http.MethodGet, "/api/assignments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[assignmentListResponse](t, rec)
	assert.Empty(t, body.Assignments)
	assert.Equal(t, 0, body.Summary.Total)
}

func TestSubmitAssignmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)
	seedAssignmentFeed(f)

	rec := f.do(t, http.MethodPost, "/api/assignments/a1/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	submitted := decodeBody[assignment.Assignment](t, rec)
	assert.Equal(t, "a1", submitted.ID)
	assert.Equal(t, assignment.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	// The transition persisted: the list reflects it on re-read.
	rec = f.do(t, http.MethodGet, "/api/assignments?status=Submitted", nil)
	body := decodeBody[assignmentListResponse](t, rec)
	assert.Len(t, body.Assignments, 2)
}

func TestSubmitAssignmentEndpoint_UnknownID(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn(t)
	seedAssignmentFeed(f)

	rec := f.do(t, http.MethodPost, "/api/assignments/missing/submit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
