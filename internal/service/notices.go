package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusgate/portal-api/internal/domain/event"
	"github.com/campusgate/portal-api/internal/ports"
)

// collectionNotices holds one notice-feed document per student.
const collectionNotices = "notices"

// NoticeWatcherOptions groups dependencies for NoticeWatcher.
type NoticeWatcherOptions struct {
	Documents ports.DocumentStore
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// NoticeWatcher surfaces new in-app notices as immediate notifications.
// It subscribes to notice-feed changes and fires an unread summary for the
// changed student's feed.
type NoticeWatcher struct {
	docs     ports.DocumentStore
	notifier ports.Notifier
	logger   *slog.Logger

	unsubscribe func()
}

// NewNoticeWatcher constructs a NoticeWatcher.
func NewNoticeWatcher(opts NoticeWatcherOptions) *NoticeWatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NoticeWatcher{
		docs:     opts.Documents,
		notifier: opts.Notifier,
		logger:   logger.With("component", "notices"),
	}
}

// Start subscribes to the notices collection until Stop or ctx ends.
func (w *NoticeWatcher) Start(ctx context.Context) error {
	unsubscribe, err := w.docs.Subscribe(ctx, collectionNotices, func(collection, key string) {
		w.handleChange(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("subscribe to notices: %w", err)
	}
	w.unsubscribe = unsubscribe
	return nil
}

// Stop tears down the subscription.
func (w *NoticeWatcher) Stop() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

func (w *NoticeWatcher) handleChange(ctx context.Context, studentID string) {
	doc, err := w.docs.GetDocument(ctx, collectionNotices, studentID)
	if err != nil {
		w.logger.WarnContext(ctx, "load changed notice feed", "student", studentID, "error", err)
		return
	}
	if doc == nil {
		return
	}

	notices, err := decodeItems[event.Notice](doc)
	if err != nil {
		w.logger.WarnContext(ctx, "decode notice feed", "student", studentID, "error", err)
		return
	}

	unread := event.UnreadCount(notices)
	if unread == 0 {
		return
	}

	if _, err := w.notifier.ScheduleNow(ctx, ports.Notification{
		Title: "New notice",
		Body:  fmt.Sprintf("You have %d unread notices", unread),
		Data:  map[string]string{"studentId": studentID},
	}); err != nil {
		w.logger.WarnContext(ctx, "notify unread notices", "student", studentID, "error", err)
	}
}
