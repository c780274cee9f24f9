package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jjudge-oj/contestjudge/internal/services"
	"github.com/jjudge-oj/contestjudge/types"
)

const maxCodeBytes = 64 << 10

// JudgeHandler runs and grades participant code.
type JudgeHandler struct {
	judgeService *services.JudgeService
}

func NewJudgeHandler(judgeService *services.JudgeService) *JudgeHandler {
	return &JudgeHandler{judgeService: judgeService}
}

// JudgeRouter registers run and submit routes on the /contests router.
func JudgeRouter(r chi.Router, judgeService *services.JudgeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewJudgeHandler(judgeService)
	authed := r.With(authMiddleware)

	authed.Post("/{contestID}/questions/{questionID}/run", handler.Run)
	authed.Post("/{contestID}/questions/{questionID}/submit", handler.Submit)
	authed.Get("/{contestID}/submissions", handler.ListSubmissions)
}

// Run executes one sample case without recording anything.
func (h *JudgeHandler) Run(w http.ResponseWriter, r *http.Request) {
	userID, contestID, questionID, ok := judgeTarget(w, r)
	if !ok {
		return
	}
	var req RunCodeRequest
	if !decodeCode(w, r, &req) {
		return
	}

	out, err := h.judgeService.Run(r.Context(), services.RunRequest{
		UserID:     userID,
		ContestID:  contestID,
		QuestionID: questionID,
		Language:   req.Language,
		Code:       req.Code,
		CaseIndex:  req.Case,
	})
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to run code")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Submit grades the code against every sample case.
func (h *JudgeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, contestID, questionID, ok := judgeTarget(w, r)
	if !ok {
		return
	}
	var req RunCodeRequest
	if !decodeCode(w, r, &req) {
		return
	}

	out, err := h.judgeService.Submit(r.Context(), services.SubmitRequest{
		UserID:     userID,
		ContestID:  contestID,
		QuestionID: questionID,
		Language:   req.Language,
		Code:       req.Code,
	})
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to judge submission")
		return
	}

	status := http.StatusCreated
	if out.Discarded {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

// ListSubmissions lists the caller's own submissions in a contest.
func (h *JudgeHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, contestID, ok := participant(w, r)
	if !ok {
		return
	}

	items, err := h.judgeService.Submissions(r.Context(), contestID, userID)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to list submissions")
		return
	}
	if items == nil {
		items = []types.Submission{}
	}
	writeJSON(w, http.StatusOK, items)
}

type RunCodeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Case     int    `json:"case"`
}

func judgeTarget(w http.ResponseWriter, r *http.Request) (userID, contestID, questionID int, ok bool) {
	userID, contestID, ok = participant(w, r)
	if !ok {
		return 0, 0, 0, false
	}
	questionID, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, 0, false
	}
	return userID, contestID, questionID, true
}

func decodeCode(w http.ResponseWriter, r *http.Request, req *RunCodeRequest) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxCodeBytes)
	if err := decodeJSON(r, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return false
	}
	return true
}
