// Package httpx exposes the student portal's session, assignment, schedule,
// and feed services over a JSON API.
package httpx

import (
	"net/http"

	"github.com/campusgate/portal-api/internal/ports"
	"github.com/campusgate/portal-api/internal/service"
)

// AuthHandlers provides HTTP handlers for sign-in, sign-out, and the
// session snapshot.
type AuthHandlers struct {
	Login   *service.LoginService
	Session *service.SessionManager
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type snapshotResponse struct {
	SignedIn  bool           `json:"signedIn"`
	Loading   bool           `json:"loading"`
	SubjectID string         `json:"subjectId,omitempty"`
	Profile   ports.Document `json:"profile,omitempty"`
}

func snapshotPayload(snap service.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		SignedIn:  snap.SignedIn(),
		Loading:   snap.Loading,
		SubjectID: snap.SubjectID,
	}
	if snap.Profile != nil {
		resp.Profile = snap.Profile.Raw()
	}
	return resp
}

// LoginHandler authenticates a student by id or email and publishes the
// resolved profile into the session.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	profile, subjectID, err := h.Login.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	if err := h.Session.UpdateProfile(r.Context(), profile, subjectID); err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, snapshotPayload(h.Session.Snapshot()))
}

// LogoutHandler signs the student out. The local session is cleared even
// when the provider call fails; the failure surfaces as a 502 so clients
// know the upstream sign-out may not have landed.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Logout(r.Context()); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "provider_signout_failed", Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapshotHandler returns the current session snapshot. It never rejects:
// anonymous and still-loading states are encoded in the body.
func (h *AuthHandlers) SnapshotHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, snapshotPayload(h.Session.Snapshot()))
}
