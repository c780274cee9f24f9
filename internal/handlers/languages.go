package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jjudge-oj/contestjudge/internal/services"
	"github.com/jjudge-oj/contestjudge/internal/wrapper"
)

// LanguageHandler serves the language catalogue and starter code.
type LanguageHandler struct {
	catalog        *wrapper.Catalog
	contestService *services.ContestService
}

func NewLanguageHandler(catalog *wrapper.Catalog, contestService *services.ContestService) *LanguageHandler {
	return &LanguageHandler{catalog: catalog, contestService: contestService}
}

// LanguageRouter registers catalogue routes on the /languages router.
func LanguageRouter(r chi.Router, catalog *wrapper.Catalog) {
	handler := NewLanguageHandler(catalog, nil)
	r.Get("/", handler.List)
}

// StarterRouter registers the starter code route on the /questions router.
func StarterRouter(
	r chi.Router,
	catalog *wrapper.Catalog,
	contestService *services.ContestService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewLanguageHandler(catalog, contestService)
	r.With(authMiddleware).Get("/{questionID}/starter", handler.Starter)
}

type LanguageResponse struct {
	Name   string         `json:"name"`
	Label  string         `json:"label"`
	Family wrapper.Family `json:"family"`
}

func (h *LanguageHandler) List(w http.ResponseWriter, _ *http.Request) {
	langs := h.catalog.List()
	out := make([]LanguageResponse, len(langs))
	for i, lang := range langs {
		out[i] = LanguageResponse{Name: lang.Name, Label: lang.Label, Family: lang.Family}
	}
	writeJSON(w, http.StatusOK, out)
}

type StarterResponse struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Starter returns the starter code for a question in the requested language.
func (h *LanguageHandler) Starter(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "questionID", "question")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, ok := h.catalog.Lookup(r.URL.Query().Get("language"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	question, err := h.contestService.Question(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "question", "failed to fetch question")
		return
	}
	writeJSON(w, http.StatusOK, StarterResponse{Language: lang.Name, Code: wrapper.Starter(lang, question.Inputs)})
}
