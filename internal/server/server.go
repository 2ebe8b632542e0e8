// Package server provides the HTTP API for Hokan.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/config"
	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/storage"
	"github.com/hyperdock/hokan/internal/tasks"
)

// maxUploadBytes bounds the multipart form kept in memory per upload.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the Hokan API. The document owner for every
// request comes from the X-User-ID header.
type Server struct {
	documents *docs.Service
	tasks     *tasks.Orchestrator
	storage   storage.Storage
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	documents *docs.Service,
	orchestrator *tasks.Orchestrator,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		documents: documents,
		tasks:     orchestrator,
		storage:   storage,
		config:    cfg,
		logger:    logger,
	}
}

// routes assembles the chi router with all middleware and endpoints.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleUploadDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/documents/{id}/similar", s.handleSimilarDocuments)
	r.Post("/api/v1/search", s.handleSearch)

	r.Post("/api/v1/tasks", s.handleSubmitTask)
	r.Get("/api/v1/tasks", s.handleListTasks)
	r.Get("/api/v1/tasks/stats", s.handleTaskStats)
	r.Post("/api/v1/tasks/cleanup", s.handleTaskCleanup)
	r.Get("/api/v1/tasks/{id}", s.handleGetTask)
	r.Delete("/api/v1/tasks/{id}", s.handleCancelTask)

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
