package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/recall/pkg/core"
	"github.com/studyloop/recall/pkg/embedding"
)

// embedRequest is the payload for POST /api/v1/embeddings.
type embedRequest struct {
	Texts          []string `json:"texts"`
	Provider       string   `json:"provider,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// searchRequest is the payload for POST /api/v1/search.
type searchRequest struct {
	UserID         string   `json:"user_id"`
	Query          string   `json:"query"`
	Limit          int      `json:"limit,omitempty"`
	MinSimilarity  float64  `json:"min_similarity,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ContextLevel   string   `json:"context_level,omitempty"`
	Mode           string   `json:"mode,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// updateRequest is the payload for PATCH /api/v1/memories/{id}.
type updateRequest struct {
	UserID    string           `json:"user_id"`
	Revisions core.UpdateInput `json:"revisions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports whether the storage backend is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := make([]core.EmbedOption, 0, 2)
	if req.Provider != "" {
		opts = append(opts, core.WithProvider(req.Provider))
	}
	if req.TimeoutSeconds > 0 {
		opts = append(opts, core.WithTimeout(time.Duration(req.TimeoutSeconds)*time.Second))
	}

	result, err := s.client.EmbedTexts(r.Context(), req.Texts, opts...)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWriteMemory(w http.ResponseWriter, r *http.Request) {
	var input core.WriteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	memory, err := s.client.WriteMemory(r.Context(), &input)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memory)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	memory, err := s.client.GetMemory(r.Context(), r.URL.Query().Get("user_id"), id)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := make([]core.ListOption, 0, 4)
	if v := q.Get("conversation_id"); v != "" {
		opts = append(opts, core.WithConversationForList(v))
	}
	if v := q.Get("memory_type"); v != "" {
		opts = append(opts, core.WithMemoryTypeForList(v))
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts = append(opts, core.WithLimitForList(v))
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		opts = append(opts, core.WithOffsetForList(v))
	}
	if q.Get("include_expired") == "true" {
		opts = append(opts, core.WithExpiredForList(true))
	}

	memories, err := s.client.ListMemories(r.Context(), q.Get("user_id"), opts...)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memories)
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	memory, err := s.client.UpdateMemory(r.Context(), req.UserID, id, &req.Revisions)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := memoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.client.DeleteMemory(r.Context(), r.URL.Query().Get("user_id"), id); err != nil {
		s.writeClientError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := make([]core.SearchOption, 0, 6)
	if req.Limit > 0 {
		opts = append(opts, core.WithLimit(req.Limit))
	}
	if req.MinSimilarity > 0 {
		opts = append(opts, core.WithMinSimilarity(req.MinSimilarity))
	}
	if len(req.Tags) > 0 {
		opts = append(opts, core.WithTags(req.Tags...))
	}
	if req.ContextLevel != "" {
		opts = append(opts, core.WithContextLevel(req.ContextLevel))
	}
	if req.Mode != "" {
		opts = append(opts, core.WithSearchMode(req.Mode))
	}
	if req.ConversationID != "" {
		opts = append(opts, core.WithConversation(req.ConversationID))
	}

	resp, err := s.client.SearchMemories(r.Context(), req.UserID, req.Query, opts...)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProviderHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.client.ProviderHealth())
}

func (s *Server) handleProviderUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.client.ProviderUsage())
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	purged, err := s.client.PurgeExpired(r.Context())
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}

// writeClientError maps engine errors onto HTTP status codes. Provider
// exhaustion reads as bad gateway: the request was fine, the upstreams were
// not.
func (s *Server) writeClientError(w http.ResponseWriter, err error) {
	var exhausted *embedding.ExhaustedError

	switch {
	case errors.Is(err, core.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrDimensionMismatch),
		errors.Is(err, embedding.ErrEmptyInput):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &exhausted):
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func memoryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
