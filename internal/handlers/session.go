package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jjudge-oj/contestjudge/internal/services"
	"github.com/jjudge-oj/contestjudge/internal/session"
	"github.com/jjudge-oj/contestjudge/types"
)

const defaultExtendMinutes = 5

// SessionHandler exposes a participant's live contest attempt.
type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// SessionRouter registers session routes on the /contests router.
func SessionRouter(
	r chi.Router,
	sessionService *services.SessionService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewSessionHandler(sessionService)
	authed := r.With(authMiddleware)

	authed.Post("/{contestID}/session", handler.Start)
	authed.Get("/{contestID}/session", handler.Get)
	authed.Post("/{contestID}/session/sync", handler.Sync)
	authed.Post("/{contestID}/session/events", handler.Event)
	authed.With(requireAdmin(userService)).Post("/{contestID}/session/extend", handler.Extend)
}

// Start begins the caller's attempt, or resumes a running one.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, contestID, ok := participant(w, r)
	if !ok {
		return
	}
	var req StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	level, valid := types.ParseLevelScope(req.Level)
	if !valid {
		writeError(w, http.StatusBadRequest, "invalid level")
		return
	}

	view, err := h.sessionService.Start(r.Context(), userID, contestID, level)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, contestID, ok := participant(w, r)
	if !ok {
		return
	}

	view, err := h.sessionService.Get(r.Context(), userID, contestID)
	if err != nil {
		writeServiceError(w, r, err, "session", "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Sync realigns the running clock with the authoritative deadline.
func (h *SessionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, contestID, ok := participant(w, r)
	if !ok {
		return
	}

	deadline, err := h.sessionService.Resync(r.Context(), userID, contestID)
	if err != nil {
		writeServiceError(w, r, err, "session", "failed to sync session")
		return
	}
	writeJSON(w, http.StatusOK, newDeadlineResponse(deadline))
}

// Event reports a client-side integrity event and returns the directives the
// UI must apply.
func (h *SessionHandler) Event(w http.ResponseWriter, r *http.Request) {
	userID, contestID, ok := participant(w, r)
	if !ok {
		return
	}
	var req SessionEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, valid := session.ParseEventKind(req.Event)
	if !valid {
		writeError(w, http.StatusBadRequest, "unknown event")
		return
	}

	directives, err := h.sessionService.HandleEvent(r.Context(), userID, contestID, kind)
	if err != nil {
		writeServiceError(w, r, err, "session", "failed to handle session event")
		return
	}
	if directives == nil {
		directives = []session.Directive{}
	}

	view, err := h.sessionService.Get(r.Context(), userID, contestID)
	if err != nil {
		writeServiceError(w, r, err, "session", "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, SessionEventResponse{Directives: directives, Status: view.Status})
}

// Extend moves a participant's deadline later. Admin only.
func (h *SessionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ExtendSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Minutes == 0 {
		req.Minutes = defaultExtendMinutes
	}

	deadline, err := h.sessionService.Extend(r.Context(), req.UserID, contestID, time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		writeServiceError(w, r, err, "session", "failed to extend session")
		return
	}
	writeJSON(w, http.StatusOK, newDeadlineResponse(deadline))
}

// participant resolves the caller and the contest in the path, writing the
// error response itself when either is missing.
func participant(w http.ResponseWriter, r *http.Request) (userID, contestID int, ok bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}
	contestID, err = parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return userID, contestID, true
}

type StartSessionRequest struct {
	Level string `json:"level"`
}

type SessionEventRequest struct {
	Event string `json:"event"`
}

type SessionEventResponse struct {
	Directives []session.Directive `json:"directives"`
	Status     types.SessionStatus `json:"status"`
}

type ExtendSessionRequest struct {
	UserID  int `json:"user_id"`
	Minutes int `json:"minutes"`
}

type DeadlineResponse struct {
	Deadline         time.Time `json:"deadline"`
	SecondsRemaining int       `json:"seconds_remaining"`
}

func newDeadlineResponse(deadline time.Time) DeadlineResponse {
	remaining := int(time.Until(deadline).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return DeadlineResponse{Deadline: deadline, SecondsRemaining: remaining}
}
