package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperdock/hokan/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocument(id, owner string) *models.Document {
	now := time.Now().UTC()
	return &models.Document{
		ID:               id,
		StoredFilename:   id + ".pdf",
		OriginalFilename: "contract_" + id + ".pdf",
		FileSize:         1024,
		FileType:         "pdf",
		MimeType:         "application/pdf",
		Category:         "contracts",
		Status:           models.DocumentStatusUploaded,
		Tags:             []string{"urgent", "signed"},
		OwnerID:          owner,
		ExtractedText:    "This agreement is urgent and signed.",
		Summary:          "Brief document.",
		Embedding:        []float32{0.1, 0.2, 0.3},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestDocumentCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	doc := testDocument("doc-1", "alice")

	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	got, err := store.GetDocument(ctx, "doc-1", "alice")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.OriginalFilename != doc.OriginalFilename || got.Category != doc.Category {
		t.Errorf("GetDocument() = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "urgent" {
		t.Errorf("tags = %v, want [urgent signed]", got.Tags)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("embedding length = %d, want 3", len(got.Embedding))
	}

	got.Summary = "Updated summary."
	if err := store.UpdateDocument(ctx, got); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	got, _ = store.GetDocument(ctx, "doc-1", "alice")
	if got.Summary != "Updated summary." {
		t.Errorf("summary = %q after update", got.Summary)
	}

	deleted, err := store.DeleteDocument(ctx, "doc-1", "alice")
	if err != nil || !deleted {
		t.Fatalf("DeleteDocument() = %v, %v", deleted, err)
	}
	if _, err := store.GetDocument(ctx, "doc-1", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument() after delete error = %v, want ErrNotFound", err)
	}
}

func TestGetDocumentOwnerIsolation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if err := store.CreateDocument(ctx, testDocument("doc-1", "alice")); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	if _, err := store.GetDocument(ctx, "doc-1", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner GetDocument() error = %v, want ErrNotFound", err)
	}
	if deleted, _ := store.DeleteDocument(ctx, "doc-1", "bob"); deleted {
		t.Error("cross-owner DeleteDocument() succeeded")
	}
}

func TestGetDocuments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	_ = store.CreateDocument(ctx, testDocument("a", "alice"))
	_ = store.CreateDocument(ctx, testDocument("b", "alice"))
	_ = store.CreateDocument(ctx, testDocument("c", "bob"))

	docs, err := store.GetDocuments(ctx, []string{"a", "b", "c", "missing"}, "alice")
	if err != nil {
		t.Fatalf("GetDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("GetDocuments() returned %d docs, want 2 (owner-scoped, missing skipped)", len(docs))
	}
}

func TestQueryDocuments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	contract := testDocument("doc-1", "alice")
	invoice := testDocument("doc-2", "alice")
	invoice.OriginalFilename = "invoice_march.pdf"
	invoice.Category = "invoices"
	invoice.Tags = []string{"quarterly"}
	invoice.ExtractedText = "Invoice total due by March 31."
	_ = store.CreateDocument(ctx, contract)
	_ = store.CreateDocument(ctx, invoice)
	_ = store.CreateDocument(ctx, testDocument("doc-3", "bob"))

	t.Run("owner only", func(t *testing.T) {
		docs, err := store.QueryDocuments(ctx, &DocumentFilter{OwnerID: "alice"})
		if err != nil || len(docs) != 2 {
			t.Fatalf("QueryDocuments() = %d docs, %v; want 2", len(docs), err)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		docs, _ := store.QueryDocuments(ctx, &DocumentFilter{OwnerID: "alice", Categories: []string{"invoices"}})
		if len(docs) != 1 || docs[0].ID != "doc-2" {
			t.Fatalf("category filter returned %v", docs)
		}
	})

	t.Run("tag filter", func(t *testing.T) {
		docs, _ := store.QueryDocuments(ctx, &DocumentFilter{OwnerID: "alice", Tags: []string{"quarterly"}})
		if len(docs) != 1 || docs[0].ID != "doc-2" {
			t.Fatalf("tag filter returned %v", docs)
		}
	})

	t.Run("text filter", func(t *testing.T) {
		docs, _ := store.QueryDocuments(ctx, &DocumentFilter{OwnerID: "alice", Text: "march"})
		if len(docs) != 1 || docs[0].ID != "doc-2" {
			t.Fatalf("text filter returned %v", docs)
		}
	})

	t.Run("limit", func(t *testing.T) {
		docs, _ := store.QueryDocuments(ctx, &DocumentFilter{OwnerID: "alice", Limit: 1})
		if len(docs) != 1 {
			t.Fatalf("limit ignored: %d docs", len(docs))
		}
	})
}

func TestCountDocuments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	_ = store.CreateDocument(ctx, testDocument("a", "alice"))
	_ = store.CreateDocument(ctx, testDocument("b", "alice"))
	_ = store.CreateDocument(ctx, testDocument("c", "bob"))

	n, err := store.CountDocuments(ctx, "alice")
	if err != nil || n != 2 {
		t.Errorf("CountDocuments() = %d, %v; want 2", n, err)
	}
}

func TestListDocumentsNoLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	const total = 120
	for i := 0; i < total; i++ {
		if err := store.CreateDocument(ctx, testDocument(fmt.Sprintf("doc-%03d", i), "alice")); err != nil {
			t.Fatalf("CreateDocument() error = %v", err)
		}
	}

	// limit <= 0 returns every document, not an implicit page.
	all, err := store.ListDocuments(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(all) != total {
		t.Errorf("ListDocuments(limit=0) = %d documents, want %d", len(all), total)
	}

	page, err := store.ListDocuments(ctx, "alice", 50)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(page) != 50 {
		t.Errorf("ListDocuments(limit=50) = %d documents, want 50", len(page))
	}
}

func testTask(id, owner string, status models.TaskState) *models.Task {
	now := time.Now().UTC()
	return &models.Task{
		ID:        id,
		Kind:      models.TaskSummarization,
		OwnerID:   owner,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	task := testTask("task-1", "alice", models.TaskPending)
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	task.Status = models.TaskCompleted
	task.Result = map[string]interface{}{"summary": "done", "word_count": 42}
	if err := store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	got, err := store.GetTask(ctx, "task-1", "alice")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Status != models.TaskCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Result["summary"] != "done" {
		t.Errorf("result = %v", got.Result)
	}

	if _, err := store.GetTask(ctx, "task-1", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner GetTask() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskMissing(t *testing.T) {
	store := newTestStorage(t)
	task := testTask("ghost", "alice", models.TaskPending)
	if err := store.UpdateTask(context.Background(), task); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTask() of missing row error = %v, want ErrNotFound", err)
	}
}

func TestListTasksByStatus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	_ = store.CreateTask(ctx, testTask("t1", "alice", models.TaskPending))
	_ = store.CreateTask(ctx, testTask("t2", "bob", models.TaskPending))
	_ = store.CreateTask(ctx, testTask("t3", "alice", models.TaskCompleted))

	// Reconciliation scans across owners.
	pending, err := store.ListTasksByStatus(ctx, models.TaskPending)
	if err != nil || len(pending) != 2 {
		t.Errorf("ListTasksByStatus(pending) = %d tasks, %v; want 2", len(pending), err)
	}
}

func TestCountTasksGrouped(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	_ = store.CreateTask(ctx, testTask("t1", "alice", models.TaskCompleted))
	_ = store.CreateTask(ctx, testTask("t2", "alice", models.TaskCompleted))
	_ = store.CreateTask(ctx, testTask("t3", "alice", models.TaskFailed))
	_ = store.CreateTask(ctx, testTask("t4", "bob", models.TaskCompleted))

	byStatus, err := store.CountTasksByStatus(ctx, "alice")
	if err != nil {
		t.Fatalf("CountTasksByStatus() error = %v", err)
	}
	if byStatus["completed"] != 2 || byStatus["failed"] != 1 {
		t.Errorf("byStatus = %v", byStatus)
	}

	byKind, err := store.CountTasksByKind(ctx, "alice")
	if err != nil {
		t.Fatalf("CountTasksByKind() error = %v", err)
	}
	if byKind[string(models.TaskSummarization)] != 3 {
		t.Errorf("byKind = %v", byKind)
	}
}

func TestDeleteTerminalTasksBefore(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	old := testTask("old-done", "alice", models.TaskCompleted)
	old.UpdatedAt = time.Now().UTC().Add(-10 * 24 * time.Hour)
	_ = store.CreateTask(ctx, old)

	oldPending := testTask("old-pending", "alice", models.TaskPending)
	oldPending.UpdatedAt = old.UpdatedAt
	_ = store.CreateTask(ctx, oldPending)

	_ = store.CreateTask(ctx, testTask("fresh", "alice", models.TaskCompleted))

	removed, err := store.DeleteTerminalTasksBefore(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalTasksBefore() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1 (old terminal only)", removed)
	}
	if _, err := store.GetTask(ctx, "old-pending", "alice"); err != nil {
		t.Error("non-terminal task was deleted by cleanup")
	}
	if _, err := store.GetTask(ctx, "fresh", "alice"); err != nil {
		t.Error("recent terminal task was deleted by cleanup")
	}
}
