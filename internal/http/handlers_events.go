package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusgate/portal-api/internal/domain/event"
	"github.com/campusgate/portal-api/internal/service"
)

// EventHandlers provides HTTP handlers for the campus event feed and the
// per-student notice feed.
type EventHandlers struct {
	Feeds *service.FeedService

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (h *EventHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type eventsResponse struct {
	Upcoming []event.Event `json:"upcoming"`
	Past     []event.Event `json:"past"`
}

// ListEvents returns the campus event feed partitioned into upcoming and
// past relative to the request time.
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	upcoming, past, err := h.Feeds.Events(r.Context(), h.now())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if upcoming == nil {
		upcoming = []event.Event{}
	}
	if past == nil {
		past = []event.Event{}
	}
	WriteJSON(w, http.StatusOK, eventsResponse{Upcoming: upcoming, Past: past})
}

type noticesResponse struct {
	Notices []event.Notice `json:"notices"`
	Unread  int            `json:"unread"`
}

// ListNotices returns the student's notices with the unread count.
func (h *EventHandlers) ListNotices(w http.ResponseWriter, r *http.Request) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}

	notices, err := h.Feeds.Notices(r.Context(), snap.Profile.StudentID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if notices == nil {
		notices = []event.Notice{}
	}
	WriteJSON(w, http.StatusOK, noticesResponse{Notices: notices, Unread: event.UnreadCount(notices)})
}

// MarkNoticeRead marks one notice read and returns the updated feed.
// Unknown ids leave the feed unchanged and still return 200.
func (h *EventHandlers) MarkNoticeRead(w http.ResponseWriter, r *http.Request) {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}

	noticeID := r.PathValue("id")
	if noticeID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("notice id is required")})
		return
	}

	updated, err := h.Feeds.MarkNoticeRead(r.Context(), snap.Profile.StudentID, noticeID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, noticesResponse{Notices: updated, Unread: event.UnreadCount(updated)})
}
