package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/mocks"
	"github.com/campusgate/portal-api/internal/mocks/fakes"
	"github.com/campusgate/portal-api/internal/ports"
)

// memoryPutter adapts the fake document store to the write interface.
type memoryPutter struct{ docs *fakes.MemoryDocumentStore }

func (p *memoryPutter) PutDocument(_ context.Context, collection, key string, doc ports.Document) error {
	p.docs.Put(collection, key, doc)
	return nil
}

func newFeedFixture(t *testing.T) (*FeedService, *fakes.MemoryDocumentStore) {
	t.Helper()
	docs := fakes.NewMemoryDocumentStore()
	svc := NewFeedService(FeedServiceOptions{Documents: docs, Writer: &memoryPutter{docs: docs}})
	return svc, docs
}

func seedAssignments(docs *fakes.MemoryDocumentStore) {
	docs.Put(collectionAssignments, testStudent, ports.Document{
		"items": []any{
			map[string]any{
				"id": "a1", "title": "Project Proposal", "course": "Software Engineering",
				"status": "Pending", "dueDate": "2024-12-05T23:59:00Z",
			},
			map[string]any{
				"id": "a2", "title": "Lab Report", "course": "Databases",
				"status": "Overdue", "dueDate": "2024-11-20T23:59:00Z",
			},
		},
	})
}

func TestAssignments(t *testing.T) {
	svc, docs := newFeedFixture(t)
	seedAssignments(docs)

	list, err := svc.Assignments(context.Background(), testStudent)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Project Proposal", list[0].Title)
	assert.Equal(t, assignment.StatusOverdue, list[1].Status)
}

func TestAssignments_AbsentFeed(t *testing.T) {
	svc, _ := newFeedFixture(t)

	list, err := svc.Assignments(context.Background(), "STU-0000")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitAssignment(t *testing.T) {
	svc, _ := newFeedFixture(t)
	docs := fakes.NewMemoryDocumentStore()
	svc = NewFeedService(FeedServiceOptions{Documents: docs, Writer: &memoryPutter{docs: docs}})
	seedAssignments(docs)
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	updated, err := svc.SubmitAssignment(context.Background(), testStudent, "a1", now)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusSubmitted, updated[0].Status)
	require.NotNil(t, updated[0].SubmittedAt)

	// The transition is persisted: a re-read sees the submission.
	reread, err := svc.Assignments(context.Background(), testStudent)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusSubmitted, reread[0].Status)
}

func TestSubmitAssignment_Unknown(t *testing.T) {
	svc, docs := newFeedFixture(t)
	seedAssignments(docs)

	_, err := svc.SubmitAssignment(context.Background(), testStudent, "missing", time.Now())
	assert.True(t, apperrors.IsNotFound(err))
}

// newReminderFeedFixture builds a FeedService whose reminders go through
// the mock notifier, with one pending assignment due well past the lead.
func newReminderFeedFixture(t *testing.T) (*FeedService, *mocks.MockNotifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	docs := fakes.NewMemoryDocumentStore()
	docs.Put(collectionAssignments, testStudent, ports.Document{
		"items": []any{
			map[string]any{
				"id": "a1", "title": "Project Proposal", "course": "Software Engineering",
				"status": "Pending", "dueDate": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
			},
		},
	})

	svc := NewFeedService(FeedServiceOptions{
		Documents: docs,
		Writer:    &memoryPutter{docs: docs},
		Reminders: NewReminderService(ReminderServiceOptions{Notifier: notifier}),
	})
	return svc, notifier
}

func TestAssignments_SchedulesReminders(t *testing.T) {
	svc, notifier := newReminderFeedFixture(t)

	notifier.EXPECT().RequestPermission(gomock.Any()).Return(true, nil)
	notifier.EXPECT().ScheduleAfter(gomock.Any(), gomock.Any(), gomock.Any()).Return("n1", nil)

	list, err := svc.Assignments(context.Background(), testStudent)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSubmitAssignment_CancelsReminder(t *testing.T) {
	svc, notifier := newReminderFeedFixture(t)

	notifier.EXPECT().RequestPermission(gomock.Any()).Return(true, nil)
	notifier.EXPECT().ScheduleAfter(gomock.Any(), gomock.Any(), gomock.Any()).Return("n1", nil)
	notifier.EXPECT().Cancel(gomock.Any(), "n1").Return(nil)

	_, err := svc.Assignments(context.Background(), testStudent)
	require.NoError(t, err)

	updated, err := svc.SubmitAssignment(context.Background(), testStudent, "a1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusSubmitted, updated[0].Status)
}

func TestTimetable(t *testing.T) {
	svc, docs := newFeedFixture(t)
	docs.Put(collectionTimetables, testStudent, ports.Document{
		"months": []any{
			map[string]any{
				"month": "2024-12",
				"schedule": []any{
					map[string]any{
						"date": "2024-12-02",
						"classes": []any{
							map[string]any{"subject": "Databases", "startTime": "09:00", "endTime": "10:30", "room": "B-204"},
						},
					},
				},
			},
		},
	})

	tt, err := svc.Timetable(context.Background(), testStudent)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12"}, tt.AvailableMonths())

	_, err = svc.Timetable(context.Background(), "STU-0000")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEvents(t *testing.T) {
	svc, docs := newFeedFixture(t)
	docs.Put(collectionFeeds, keyEvents, ports.Document{
		"items": []any{
			map[string]any{"id": "e1", "title": "Orientation", "startsAt": "2024-11-01T10:00:00Z"},
			map[string]any{"id": "e2", "title": "Tech Fest", "startsAt": "2024-12-20T10:00:00Z"},
		},
	})
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	upcoming, past, err := svc.Events(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "e2", upcoming[0].ID)
	require.Len(t, past, 1)
	assert.Equal(t, "e1", past[0].ID)
}

func TestMarkNoticeRead(t *testing.T) {
	svc, docs := newFeedFixture(t)
	docs.Put(collectionNotices, testStudent, ports.Document{
		"items": []any{
			map[string]any{"id": "n1", "title": "Fee deadline", "read": false},
			map[string]any{"id": "n2", "title": "Holiday notice", "read": false},
		},
	})

	updated, err := svc.MarkNoticeRead(context.Background(), testStudent, "n1")
	require.NoError(t, err)
	assert.True(t, updated[0].Read)
	assert.False(t, updated[1].Read)

	reread, err := svc.Notices(context.Background(), testStudent)
	require.NoError(t, err)
	assert.True(t, reread[0].Read)
}
