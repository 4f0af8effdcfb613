package httpx

import (
	"log/slog"
	"net/http"

	"github.com/campusgate/portal-api/internal/service"
)

// RouterServices groups the services the router wires into handlers.
type RouterServices struct {
	Session *service.SessionManager
	Login   *service.LoginService
	Feeds   *service.FeedService
	Logger  *slog.Logger
}

// NewRouter builds the API router. Auth and session endpoints are open;
// the data endpoints sit behind the signed-in gate.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", HealthHandler)

	registerAuthRoutes(mux, &AuthHandlers{Login: services.Login, Session: services.Session})

	gate := RequireSession(services.Session)
	registerAssignmentRoutes(mux, gate, &AssignmentHandlers{Feeds: services.Feeds})
	registerScheduleRoutes(mux, gate, &ScheduleHandlers{Feeds: services.Feeds})
	registerEventRoutes(mux, gate, &EventHandlers{Feeds: services.Feeds})

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/login", h.LoginHandler)
	mux.HandleFunc("POST /api/auth/logout", h.LogoutHandler)
	mux.HandleFunc("GET /api/session", h.SnapshotHandler)
}

func registerAssignmentRoutes(mux *http.ServeMux, gate func(http.Handler) http.Handler, h *AssignmentHandlers) {
	mux.Handle("GET /api/assignments", gate(http.HandlerFunc(h.ListAssignments)))
	mux.Handle("POST /api/assignments/{id}/submit", gate(http.HandlerFunc(h.SubmitAssignment)))
}

func registerScheduleRoutes(mux *http.ServeMux, gate func(http.Handler) http.Handler, h *ScheduleHandlers) {
	mux.Handle("GET /api/schedule/months", gate(http.HandlerFunc(h.ListMonths)))
	mux.Handle("GET /api/schedule/{month}/day/{date}", gate(http.HandlerFunc(h.DayClasses)))
	mux.Handle("GET /api/schedule/{month}/weeks", gate(http.HandlerFunc(h.WeekWindow)))
}

func registerEventRoutes(mux *http.ServeMux, gate func(http.Handler) http.Handler, h *EventHandlers) {
	mux.Handle("GET /api/events", gate(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/notices", gate(http.HandlerFunc(h.ListNotices)))
	mux.Handle("POST /api/notices/{id}/read", gate(http.HandlerFunc(h.MarkNoticeRead)))
}

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
