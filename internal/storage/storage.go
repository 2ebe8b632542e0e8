// Package storage defines the persistence interfaces for documents and tasks.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperdock/hokan/internal/models"
)

// ErrNotFound is returned when a record does not exist for the given
// (ID, owner) pair. An owner mismatch is indistinguishable from absence.
var ErrNotFound = errors.New("not found")

// DocumentFilter selects documents for a query. Zero-value fields are
// ignored. Text matches case-insensitively as a substring of the original
// filename, extracted text, or summary.
type DocumentFilter struct {
	OwnerID    string
	Categories []string
	Tags       []string
	Text       string
	Limit      int
}

// DocumentStore persists document records. Each single-record operation is
// atomic; no cross-record transactions are provided.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error)
	GetDocuments(ctx context.Context, ids []string, ownerID string) ([]*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id, ownerID string) (bool, error)
	QueryDocuments(ctx context.Context, filter *DocumentFilter) ([]*models.Document, error)
	ListDocuments(ctx context.Context, ownerID string, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context, ownerID string) (int64, error)
}

// TaskStore persists task records.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id, ownerID string) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID string, limit int) ([]*models.Task, error)
	ListTasksByStatus(ctx context.Context, status models.TaskState) ([]*models.Task, error)
	CountTasksByStatus(ctx context.Context, ownerID string) (map[string]int64, error)
	CountTasksByKind(ctx context.Context, ownerID string) (map[string]int64, error)
	DeleteTerminalTasksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Storage combines both stores behind a single connection.
type Storage interface {
	DocumentStore
	TaskStore
	Close() error
}
