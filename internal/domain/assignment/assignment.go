package assignment

// Package assignment contains the pure derivation logic for the assignments
// screen: status/course filtering, summary aggregation, and the local submit
// transition. It is free of framework/adapter concerns; identical inputs
// always produce identical outputs.

import (
	"math"
	"time"

	apperrors "github.com/campusgate/portal-api/internal/errors"
)

// Status represents an assignment's submission state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSubmitted Status = "Submitted"
	StatusOverdue   Status = "Overdue"
)

// StatusAll is the wildcard status filter.
const StatusAll = "All"

// CourseAll is the wildcard course filter.
const CourseAll = "All Courses"

// Assignment is one coursework record.
// Invariant: Status == StatusSubmitted iff SubmittedAt != nil.
type Assignment struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Course        string     `json:"course"`
	CourseCode    string     `json:"courseCode"`
	DueAt         time.Time  `json:"dueDate"`
	Status        Status     `json:"status"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	Points        int        `json:"points"`
	HasAttachment bool       `json:"hasAttachment"`
}

// InvariantHolds reports whether the status/timestamp invariant holds.
func (a Assignment) InvariantHolds() bool {
	return (a.Status == StatusSubmitted) == (a.SubmittedAt != nil)
}

// Summary aggregates an assignment list for the dashboard header.
type Summary struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Submitted         int `json:"submitted"`
	Overdue           int `json:"overdue"`
	CompletionPercent int `json:"completionPercent"`
}

// Summarize computes per-status counts and the completion percentage.
// CompletionPercent is round(100*submitted/total) and 0 for an empty list.
func Summarize(list []Assignment) Summary {
	s := Summary{Total: len(list)}
	for _, a := range list {
		switch a.Status {
		case StatusPending:
			s.Pending++
		case StatusSubmitted:
			s.Submitted++
		case StatusOverdue:
			s.Overdue++
		}
	}
	if s.Total > 0 {
		s.CompletionPercent = int(math.Round(100 * float64(s.Submitted) / float64(s.Total)))
	}
	return s
}

// DistinctCourses returns the unique course names in first-seen order,
// prefixed with the CourseAll sentinel.
func DistinctCourses(list []Assignment) []string {
	courses := []string{CourseAll}
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		if seen[a.Course] {
			continue
		}
		seen[a.Course] = true
		courses = append(courses, a.Course)
	}
	return courses
}

// Filter keeps assignments matching both the status and course filters.
// StatusAll and CourseAll act as wildcards. Filter values outside the known
// sets simply match nothing; they are never an error.
func Filter(list []Assignment, status, course string) []Assignment {
	out := make([]Assignment, 0, len(list))
	for _, a := range list {
		statusMatch := status == StatusAll || string(a.Status) == status
		courseMatch := course == CourseAll || a.Course == course
		if statusMatch && courseMatch {
			out = append(out, a)
		}
	}
	return out
}

// Submit returns a copy of list with the matching assignment marked
// Submitted at now. The input is never mutated. An unknown id returns a
// NotFound error and the input unchanged, so a failed submit has no
// visible state change.
func Submit(list []Assignment, id string, now time.Time) ([]Assignment, error) {
	idx := -1
	for i, a := range list {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return list, apperrors.NotFoundf("assignment %q not found", id)
	}

	out := make([]Assignment, len(list))
	copy(out, list)
	submittedAt := now
	out[idx].Status = StatusSubmitted
	out[idx].SubmittedAt = &submittedAt
	return out, nil
}
