package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/storage"
	"github.com/hyperdock/hokan/internal/tasks"
)

// ownerID extracts the requesting owner from the X-User-ID header.
func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	input := &models.UploadInput{
		Filename:       header.Filename,
		Content:        content,
		OwnerID:        owner,
		Category:       r.FormValue("category"),
		AutoCategorize: r.FormValue("auto_categorize") != "false",
	}
	if tags := r.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	s.logger.Debug("upload request",
		zap.String("filename", input.Filename),
		zap.Int("size", len(content)),
		zap.String("user_id", owner))
	doc, err := s.documents.Ingest(r.Context(), input)
	if err != nil {
		if errors.Is(err, docs.ErrValidation) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit <= 0 {
		limit = s.config.Search.DefaultLimit
	}
	documents, err := s.documents.List(r.Context(), owner, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	doc, err := s.documents.Get(r.Context(), id, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	deleted, err := s.documents.Delete(r.Context(), id, owner)
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSimilarDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	threshold := queryFloat(r, "threshold", 0)
	limit := queryInt(r, "limit", 0)
	results, err := s.documents.FindSimilar(r.Context(), id, owner, threshold, limit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("similar lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize(s.config.Search.DefaultLimit, s.config.Search.MaxLimit)
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))
	results, err := s.documents.Search(r.Context(), owner, &req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}

type submitTaskRequest struct {
	TaskType   string                 `json:"task_type"`
	Parameters map[string]interface{} `json:"parameters"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TaskType == "" {
		s.respondError(w, http.StatusBadRequest, "task_type is required")
		return
	}
	task, err := s.tasks.Submit(r.Context(), owner, models.TaskKind(req.TaskType), req.Parameters)
	if err != nil {
		s.logger.Error("task submission failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	limit := queryInt(r, "limit", 50)
	list, err := s.tasks.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		s.logger.Error("list tasks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
		"count": len(list),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	task, err := s.tasks.GetStatus(r.Context(), id, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "task not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("cancel task request", zap.String("id", id))
	if err := s.tasks.Cancel(r.Context(), id, owner); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "task not found")
		case errors.Is(err, tasks.ErrTaskTerminal):
			s.respondError(w, http.StatusConflict, "task already finished")
		default:
			s.logger.Error("cancel task failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	stats, err := s.tasks.Stats(r.Context(), owner)
	if err != nil {
		s.logger.Error("task stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTaskCleanup(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", s.config.Tasks.RetentionDays)
	removed, err := s.tasks.CleanupOlderThan(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		s.logger.Error("task cleanup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"removed":        removed,
		"retention_days": days,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		s.respondError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	ctx := r.Context()
	docCount, err := s.documents.Count(ctx, owner)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
	}

	configInfo := map[string]interface{}{
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"database_path":        s.config.Storage.DatabasePath,
		"blob_path":            s.config.Storage.BlobPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BlobPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
