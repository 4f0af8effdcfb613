package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	"github.com/campusgate/portal-api/internal/domain/event"
	"github.com/campusgate/portal-api/internal/domain/schedule"
	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/ports"
)

// Feed collections. Assignments, timetables, and notices hold one document
// per student; events is a single campus-wide feed.
const (
	collectionAssignments = "assignments"
	collectionTimetables  = "timetables"
	collectionFeeds       = "feeds"
	keyEvents             = "events"
)

// DocumentPutter is the write half of the document store, used to persist
// submissions and read-state transitions.
type DocumentPutter interface {
	PutDocument(ctx context.Context, collection, key string, doc ports.Document) error
}

// FeedServiceOptions groups dependencies for FeedService.
type FeedServiceOptions struct {
	Documents ports.DocumentStore
	Writer    DocumentPutter
	// Reminders, when set, keeps due-date reminders in sync with the
	// assignment feed as it is served and submitted.
	Reminders *ReminderService
	Logger    *slog.Logger
}

// FeedService loads the per-student read models (assignments, timetable,
// notices) and the campus event feed from the document store, and applies
// the pure derivations' transitions back to it.
type FeedService struct {
	docs      ports.DocumentStore
	writer    DocumentPutter
	reminders *ReminderService
	logger    *slog.Logger
}

// NewFeedService constructs a FeedService.
func NewFeedService(opts FeedServiceOptions) *FeedService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedService{docs: opts.Documents, writer: opts.Writer, reminders: opts.Reminders, logger: logger}
}

// Assignments returns the student's assignment list and refreshes the
// due-date reminders for it. An absent feed is an empty list.
func (s *FeedService) Assignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	list, err := s.loadAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if s.reminders != nil {
		s.reminders.ScheduleDueReminders(ctx, list, time.Now())
	}
	return list, nil
}

func (s *FeedService) loadAssignments(ctx context.Context, studentID string) ([]assignment.Assignment, error) {
	doc, err := s.docs.GetDocument(ctx, collectionAssignments, studentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return decodeItems[assignment.Assignment](doc)
}

// SubmitAssignment applies the submit transition, persists the updated
// list, and drops the assignment's pending reminder. Unknown assignment
// ids surface as NotFound.
func (s *FeedService) SubmitAssignment(ctx context.Context, studentID, assignmentID string, now time.Time) ([]assignment.Assignment, error) {
	list, err := s.loadAssignments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	updated, err := assignment.Submit(list, assignmentID, now)
	if err != nil {
		return nil, err
	}

	if s.writer != nil {
		if putErr := s.writer.PutDocument(ctx, collectionAssignments, studentID, encodeItems(updated)); putErr != nil {
			return nil, putErr
		}
	}
	if s.reminders != nil {
		s.reminders.CancelReminder(ctx, assignmentID)
	}
	return updated, nil
}

// Timetable returns the student's timetable, or NotFound when none exists.
func (s *FeedService) Timetable(ctx context.Context, studentID string) (*schedule.Timetable, error) {
	doc, err := s.docs.GetDocument(ctx, collectionTimetables, studentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NotFoundf("no timetable for student %q", studentID)
	}

	raw, err := json.Marshal(map[string]any(doc))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode timetable document")
	}
	var tt schedule.Timetable
	if err := json.Unmarshal(raw, &tt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode timetable document")
	}
	return &tt, nil
}

// Events returns the campus event feed, partitioned upcoming/past.
func (s *FeedService) Events(ctx context.Context, now time.Time) (upcoming, past []event.Event, err error) {
	doc, err := s.docs.GetDocument(ctx, collectionFeeds, keyEvents)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, nil
	}
	events, err := decodeItems[event.Event](doc)
	if err != nil {
		return nil, nil, err
	}
	upcoming, past = event.Partition(events, now)
	return upcoming, past, nil
}

// Notices returns the student's notice feed. An absent feed is empty.
func (s *FeedService) Notices(ctx context.Context, studentID string) ([]event.Notice, error) {
	doc, err := s.docs.GetDocument(ctx, collectionNotices, studentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return decodeItems[event.Notice](doc)
}

// MarkNoticeRead marks one notice read and persists the feed. Unknown ids
// leave the feed untouched and are not an error, matching the derivation.
func (s *FeedService) MarkNoticeRead(ctx context.Context, studentID, noticeID string) ([]event.Notice, error) {
	notices, err := s.Notices(ctx, studentID)
	if err != nil {
		return nil, err
	}

	updated := event.MarkRead(notices, noticeID)
	if s.writer != nil {
		if putErr := s.writer.PutDocument(ctx, collectionNotices, studentID, encodeItems(updated)); putErr != nil {
			return nil, putErr
		}
	}
	return updated, nil
}

// decodeItems decodes a feed document's "items" array through JSON.
func decodeItems[T any](doc ports.Document) ([]T, error) {
	items, ok := doc["items"]
	if !ok {
		return nil, nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode feed items")
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, fmt.Sprintf("decode feed items (%T)", out))
	}
	return out, nil
}

// encodeItems wraps a list back into a feed document.
func encodeItems[T any](items []T) ports.Document {
	return ports.Document{"items": items}
}
