package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/internal/logger"
	"github.com/jjudge-oj/contestjudge/internal/services"
	"github.com/jjudge-oj/contestjudge/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxBundleBytes     = 64 << 20
	formFieldBundle    = "bundle"
)

// BundleFile represents an uploaded sample bundle.
type BundleFile struct {
	Filename string
	Data     []byte
}

// ContestHandler provides HTTP handlers for contests and their questions.
type ContestHandler struct {
	contestService *services.ContestService
}

func NewContestHandler(contestService *services.ContestService) *ContestHandler {
	return &ContestHandler{contestService: contestService}
}

// ContestRouter registers contest routes on the /contests router.
func ContestRouter(
	r chi.Router,
	contestService *services.ContestService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewContestHandler(contestService)
	admin := r.With(authMiddleware, requireAdmin(userService))

	r.Get("/", handler.ListContests)
	admin.Post("/", handler.CreateContest)
	r.Get("/{contestID}", handler.GetContest)
	admin.Put("/{contestID}", handler.UpdateContest)
	admin.Delete("/{contestID}", handler.DeleteContest)
	r.With(authMiddleware).Get("/{contestID}/questions", handler.ListQuestions)
	admin.Post("/{contestID}/questions", handler.CreateQuestion)
}

// QuestionRouter registers question routes on the /questions router.
func QuestionRouter(
	r chi.Router,
	contestService *services.ContestService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewContestHandler(contestService)
	admin := r.With(authMiddleware, requireAdmin(userService))

	r.With(authMiddleware).Get("/{questionID}", handler.GetQuestion)
	admin.Put("/{questionID}", handler.UpdateQuestion)
	admin.Delete("/{questionID}", handler.DeleteQuestion)
	admin.Put("/{questionID}/samples", handler.UploadSamples)
	admin.Get("/{questionID}/samples", handler.DownloadSamples)
}

func (h *ContestHandler) ListContests(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.contestService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to list contests")
		return
	}

	writeJSON(w, http.StatusOK, ContestListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ContestHandler) GetContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contest, err := h.contestService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to fetch contest")
		return
	}
	writeJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) CreateContest(w http.ResponseWriter, r *http.Request) {
	var req ContestUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contest := req.contest()
	contest.CreatedBy = userID
	created, err := h.contestService.Create(r.Context(), contest)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to create contest")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ContestHandler) UpdateContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ContestUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contest := req.contest()
	contest.ID = id
	updated, err := h.contestService.Update(r.Context(), contest)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to update contest")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ContestHandler) DeleteContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.contestService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "contest", "failed to delete contest")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListQuestions lists a contest's questions, optionally restricted by the
// level query parameter ("1", "2", "3" or "other").
func (h *ContestHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, ok := types.ParseLevelScope(r.URL.Query().Get("level"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid level")
		return
	}

	questions, err := h.contestService.Questions(r.Context(), id, scope)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to list questions")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *ContestHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIDParam(r, "contestID", "contest")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req QuestionUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question := req.question()
	question.ContestID = contestID
	created, err := h.contestService.CreateQuestion(r.Context(), question)
	if err != nil {
		writeServiceError(w, r, err, "contest", "failed to create question")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ContestHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := h.contestService.Question(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to fetch question")
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *ContestHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req QuestionUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	question := req.question()
	question.ID = id
	updated, err := h.contestService.UpdateQuestion(r.Context(), question)
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to update question")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ContestHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.contestService.DeleteQuestion(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "question", "failed to delete question")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadSamples replaces a question's samples from a multipart "bundle"
// file (.tar.gz of <n>.in / <n>.out pairs).
func (h *ContestHandler) UploadSamples(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	bundle, err := parseBundleFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.contestService.ImportSamples(r.Context(), id, bundle.Filename, bundle.Data)
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to import samples")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DownloadSamples streams the archived bundle the question's samples came from.
func (h *ContestHandler) DownloadSamples(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, bundle, err := h.contestService.SampleBundle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "sample bundle", "failed to open sample bundle")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="samples-%s.tar.gz"`, bundle.SHA256))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.FromContext(r.Context()).Warn("sample bundle download interrupted",
			zap.Int("question_id", id), zap.Error(err))
	}
}

// ContestUpsertRequest is the JSON body for creating or updating a contest.
type ContestUpsertRequest struct {
	Name     string    `json:"name"`
	Duration int       `json:"duration"`
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
}

func (req ContestUpsertRequest) contest() types.Contest {
	return types.Contest{
		Name:     strings.TrimSpace(req.Name),
		Duration: req.Duration,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
	}
}

// QuestionUpsertRequest is the JSON body for creating or updating a question.
type QuestionUpsertRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Constraints   string                `json:"constraints"`
	Level         int                   `json:"level"`
	Inputs        []types.ParameterSpec `json:"inputs"`
	SampleInputs  []string              `json:"sample_inputs"`
	SampleOutputs []string              `json:"sample_outputs"`
	SampleInput   string                `json:"sample_input"`
	SampleOutput  string                `json:"sample_output"`
}

func (req QuestionUpsertRequest) question() types.Question {
	return types.Question{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Constraints:   req.Constraints,
		Level:         req.Level,
		Inputs:        req.Inputs,
		SampleInputs:  req.SampleInputs,
		SampleOutputs: req.SampleOutputs,
		SampleInput:   req.SampleInput,
		SampleOutput:  req.SampleOutput,
	}
}

// ContestListResponse is the paginated list response payload.
type ContestListResponse struct {
	Items []types.Contest `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

func parseBundleFile(form *multipart.Form) (BundleFile, error) {
	if form == nil {
		return BundleFile{}, errors.New("missing form data")
	}

	files := form.File[formFieldBundle]
	if len(files) == 0 {
		return BundleFile{}, errors.New("bundle file is required")
	}
	if len(files) > 1 {
		return BundleFile{}, errors.New("only one bundle file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return BundleFile{}, fmt.Errorf("failed to read bundle file: %w", err)
	}

	data, err := readFileLimited(file, maxBundleBytes)
	_ = file.Close()
	if err != nil {
		return BundleFile{}, err
	}

	return BundleFile{
		Filename: fileHeader.Filename,
		Data:     data,
	}, nil
}
