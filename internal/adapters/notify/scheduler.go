// Package notify implements the notification port with an in-process
// timer scheduler. Delivery hands the notification to a sink callback;
// the default sink logs it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/ports"
)

// Sink receives due notifications.
type Sink func(n ports.Notification)

// SchedulerOptions configures the Scheduler.
type SchedulerOptions struct {
	// MaxDelay caps ScheduleAfter; longer delays are rejected. Zero means
	// no cap.
	MaxDelay time.Duration
	// Sink receives notifications when they fire. Nil logs them.
	Sink   Sink
	Logger *slog.Logger
}

// Scheduler implements ports.Notifier with time.AfterFunc timers keyed by
// generated ids. Pending timers are lost on process exit; callers
// reschedule on start.
type Scheduler struct {
	maxDelay time.Duration
	sink     Sink
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewScheduler creates a notification scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notify")

	sink := opts.Sink
	if sink == nil {
		sink = func(n ports.Notification) {
			logger.Info("notification fired", "title", n.Title, "body", n.Body)
		}
	}

	return &Scheduler{
		maxDelay: opts.MaxDelay,
		sink:     sink,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// RequestPermission always grants; the in-process scheduler has nothing
// to ask.
func (s *Scheduler) RequestPermission(_ context.Context) (bool, error) {
	return true, nil
}

// ScheduleNow delivers the notification immediately.
func (s *Scheduler) ScheduleNow(_ context.Context, n ports.Notification) (string, error) {
	id := uuid.NewString()
	s.sink(n)
	return id, nil
}

// ScheduleAfter delivers the notification once delay elapses.
func (s *Scheduler) ScheduleAfter(_ context.Context, delay time.Duration, n ports.Notification) (string, error) {
	if delay < 0 {
		return "", apperrors.Validation("notification delay must not be negative")
	}
	if s.maxDelay > 0 && delay > s.maxDelay {
		return "", apperrors.Validation("notification delay exceeds the configured maximum")
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.sink(n)
	})
	s.mu.Unlock()
	return id, nil
}

// Cancel stops a pending notification. Unknown or already-fired ids are a
// no-op.
func (s *Scheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	return nil
}

// CancelAll stops every pending notification.
func (s *Scheduler) CancelAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	return nil
}

// Pending reports the number of scheduled, not-yet-fired notifications.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
