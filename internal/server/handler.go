package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/internal/search"
	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
)

const maxDocumentBody = 1 << 20

// Handler serves the search HTTP API.
type Handler struct {
	engine *search.Engine
	idx    *index.Index
	logger *slog.Logger
}

func NewHandler(engine *search.Engine, idx *index.Index) *Handler {
	return &Handler{
		engine: engine,
		idx:    idx,
		logger: logger.WithComponent("http"),
	}
}

type searchResponse struct {
	Query   string          `json:"query"`
	Mode    string          `json:"mode"`
	Results []search.Result `json:"results"`
}

// Search handles GET /api/search?q=&mode=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	mode := r.URL.Query().Get("mode")
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	results, err := h.engine.Search(r.Context(), query, mode, limit)
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}
	if mode == "" {
		mode = "any"
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Mode: mode, Results: results})
}

type autocompleteResponse struct {
	Prefix      string   `json:"prefix"`
	Completions []string `json:"completions"`
}

// Autocomplete handles GET /api/autocomplete?prefix=&limit=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}
	completions, err := h.engine.Autocomplete(r.Context(), prefix, limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("autocomplete failed", "prefix", prefix, "error", err)
		h.writeAppError(w, err, "autocomplete failed")
		return
	}
	h.writeJSON(w, http.StatusOK, autocompleteResponse{Prefix: prefix, Completions: completions})
}

type addDocumentRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Abstract string `json:"abstract"`
}

type addDocumentResponse struct {
	DocID uint32 `json:"doc_id"`
}

// AddDocument handles POST /api/documents.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req addDocumentRequest
	body := io.LimitReader(r.Body, maxDocumentBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" && req.Authors == "" && req.Abstract == "" {
		h.writeError(w, http.StatusBadRequest, "document must have at least one of title, authors, abstract")
		return
	}

	doc, err := h.idx.AddDocument(r.Context(), docstore.Document{
		ID:       req.ID,
		Title:    req.Title,
		Authors:  req.Authors,
		Abstract: req.Abstract,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateDocument) {
			h.writeError(w, http.StatusConflict, "document already exists")
			return
		}
		log.Error("add document failed", "external_id", req.ID, "error", err)
		h.writeAppError(w, err, "failed to index document")
		return
	}
	log.Info("document indexed", "doc", doc, "external_id", req.ID)
	h.writeJSON(w, http.StatusCreated, addDocumentResponse{DocID: uint32(doc)})
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	msg := fallback
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= 500 {
		msg = fallback
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
