package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/campusgate/portal-api/internal/domain/assignment"
	"github.com/campusgate/portal-api/internal/ports"
)

// ReminderServiceOptions groups dependencies for ReminderService.
type ReminderServiceOptions struct {
	Notifier ports.Notifier
	// Lead is how far before the due date a reminder fires. Defaults to 24h.
	Lead   time.Duration
	Logger *slog.Logger
}

// ReminderService schedules due-date reminders for assignments.
// Fire-and-forget: scheduling failures are logged, never propagated.
type ReminderService struct {
	notifier ports.Notifier
	lead     time.Duration
	logger   *slog.Logger

	permissionOnce sync.Once
	granted        bool

	mu        sync.Mutex
	scheduled map[string]string // assignment id -> notification id
}

// NewReminderService constructs a ReminderService.
func NewReminderService(opts ReminderServiceOptions) *ReminderService {
	lead := opts.Lead
	if lead == 0 {
		lead = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderService{
		notifier:  opts.Notifier,
		lead:      lead,
		logger:    logger.With("component", "reminders"),
		scheduled: make(map[string]string),
	}
}

// ScheduleDueReminders schedules one reminder per unsubmitted assignment
// whose due date is more than the lead time away, replacing any reminder
// already scheduled for the same assignment. Returns how many reminders
// were scheduled.
func (s *ReminderService) ScheduleDueReminders(ctx context.Context, assignments []assignment.Assignment, now time.Time) int {
	if !s.requestPermission(ctx) {
		return 0
	}

	count := 0
	for _, a := range assignments {
		if a.Status == assignment.StatusSubmitted {
			continue
		}
		delay := a.DueAt.Add(-s.lead).Sub(now)
		if delay <= 0 {
			continue
		}

		s.cancelExisting(ctx, a.ID)

		id, err := s.notifier.ScheduleAfter(ctx, delay, ports.Notification{
			Title: "Assignment due soon",
			Body:  a.Title + " is due in 24 hours",
			Data:  map[string]string{"assignmentId": a.ID},
		})
		if err != nil {
			s.logger.WarnContext(ctx, "schedule reminder failed",
				"assignment", a.ID, "error", err)
			continue
		}

		s.mu.Lock()
		s.scheduled[a.ID] = id
		s.mu.Unlock()
		count++
	}
	return count
}

// CancelReminder cancels the reminder for one assignment, typically after
// submission. Unknown assignments are a no-op.
func (s *ReminderService) CancelReminder(ctx context.Context, assignmentID string) {
	s.cancelExisting(ctx, assignmentID)
}

// CancelAll drops every scheduled reminder.
func (s *ReminderService) CancelAll(ctx context.Context) {
	if err := s.notifier.CancelAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "cancel all reminders failed", "error", err)
	}
	s.mu.Lock()
	s.scheduled = make(map[string]string)
	s.mu.Unlock()
}

func (s *ReminderService) cancelExisting(ctx context.Context, assignmentID string) {
	s.mu.Lock()
	id, ok := s.scheduled[assignmentID]
	delete(s.scheduled, assignmentID)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.notifier.Cancel(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cancel reminder failed",
			"assignment", assignmentID, "error", err)
	}
}

func (s *ReminderService) requestPermission(ctx context.Context) bool {
	s.permissionOnce.Do(func() {
		granted, err := s.notifier.RequestPermission(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "notification permission request failed", "error", err)
			return
		}
		s.granted = granted
	})
	return s.granted
}
