package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/memofeed/internal/store"
)

func (s *Server) handleListMemos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := store.ParseFilter(q.Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := store.ParseOrder(q.Get("order_by"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pageSize := 0
	if ps := q.Get("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"page_size must be a non-negative integer"}`, http.StatusBadRequest)
			return
		}
		pageSize = n
	}

	result, err := s.db.ListMemos(store.ListOptions{
		Filter:    filter,
		OrderBy:   order,
		State:     q.Get("state"),
		PageSize:  pageSize,
		PageToken: q.Get("page_token"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type memoRequest struct {
	Content     string `json:"content"`
	Creator     string `json:"creator"`
	Visibility  string `json:"visibility"`
	Pinned      bool   `json:"pinned"`
	DisplayTime int64  `json:"display_time"`
}

func (req memoRequest) memo() *store.Memo {
	return &store.Memo{
		Content:     req.Content,
		Creator:     req.Creator,
		Visibility:  req.Visibility,
		Pinned:      req.Pinned,
		DisplayTime: req.DisplayTime,
	}
}

func (s *Server) handleCreateMemo(w http.ResponseWriter, r *http.Request) {
	var req memoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	m := req.memo()
	if err := s.db.CreateMemo(m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("memo created", "uid", m.UID, "tags", m.Tags)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMemo(w http.ResponseWriter, r *http.Request) {
	m, err := s.db.GetMemo(chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMemo(w http.ResponseWriter, r *http.Request) {
	var req store.MemoUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	m, err := s.db.UpdateMemo(chi.URLParam(r, "uid"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMemo(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.db.DeleteMemo(uid); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("memo deleted", "uid", uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.db.ListComments(chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req memoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	m := req.memo()
	m.ParentUID = chi.URLParam(r, "uid")
	if err := s.db.CreateMemo(m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	rel, err := s.db.ListRelations(chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (s *Server) handleAddReference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RelatedUID string `json:"related_uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.RelatedUID == "" {
		http.Error(w, `{"error":"related_uid required"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.AddReference(chi.URLParam(r, "uid"), req.RelatedUID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveReference(w http.ResponseWriter, r *http.Request) {
	err := s.db.RemoveReference(chi.URLParam(r, "uid"), chi.URLParam(r, "related"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps store errors onto HTTP status codes. Unexpected errors
// are logged and reported as 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidFilter),
		errors.Is(err, store.ErrInvalidCursor):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
