package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/blob"
	"github.com/hyperdock/hokan/internal/classify"
	"github.com/hyperdock/hokan/internal/config"
	"github.com/hyperdock/hokan/internal/docs"
	"github.com/hyperdock/hokan/internal/embedding"
	"github.com/hyperdock/hokan/internal/extract"
	"github.com/hyperdock/hokan/internal/generate"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/storage"
	"github.com/hyperdock/hokan/internal/tasks"
)

func newTestServer(t *testing.T) (*Server, *tasks.Orchestrator) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := blob.NewDiskStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	documents := docs.NewService(
		store,
		blobs,
		extract.NewExtractor(),
		classify.NewKeywordClassifier(),
		embedding.NewDeterministicEmbedder(32, 100),
		generate.NewMockGenerator(),
	)
	orchestrator := tasks.NewOrchestrator(store, documents, generate.NewMockGenerator())

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Storage.BlobPath = filepath.Join(dir, "blobs")

	return NewServer(documents, orchestrator, store, cfg, zap.NewNop()), orchestrator
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func uploadVia(t *testing.T, handler http.Handler, user, filename, content string) models.Document {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", user)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingUserHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.routes()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/documents"},
		{http.MethodGet, "/api/v1/documents"},
		{http.MethodPost, "/api/v1/search"},
		{http.MethodPost, "/api/v1/tasks"},
		{http.MethodGet, "/api/v1/tasks"},
		{http.MethodGet, "/api/v1/status"},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestUploadAndGetDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.routes()

	doc := uploadVia(t, handler, "alice", "contract.txt", "service agreement terms, urgent")
	assert.Equal(t, "contracts", doc.Category)
	assert.Contains(t, doc.Tags, "urgent")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another owner cannot see it.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	req.Header.Set("X-User-ID", "bob")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadWithoutFile(t *testing.T) {
	srv, _ := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("category", "misc")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.routes()

	uploadVia(t, handler, "alice", "invoice_q1.txt", "invoice payment due in march")
	uploadVia(t, handler, "alice", "notes.txt", "meeting notes")

	payload, _ := json.Marshal(models.SearchRequest{Query: "invoice", IncludeContent: true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(payload))
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Query   string                 `json:"query"`
		Results []*models.SearchResult `json:"results"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "invoice", response.Query)
	require.Equal(t, 1, response.Count)
	assert.InDelta(t, 0.8, response.Results[0].RelevanceScore, 1e-9)
	assert.Contains(t, response.Results[0].MatchingContent, "invoice")
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.routes()
	doc := uploadVia(t, handler, "alice", "a.txt", "content")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskLifecycleEndpoints(t *testing.T) {
	srv, orchestrator := newTestServer(t)
	handler := srv.routes()
	doc := uploadVia(t, handler, "alice", "report.txt", "a report to summarize later")

	payload := fmt.Sprintf(`{"task_type":"document_summarization","parameters":{"document_id":%q}}`, doc.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader([]byte(payload)))
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, models.TaskPending, task.Status)

	orchestrator.Wait()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+task.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var done models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, models.TaskCompleted, done.Status)
	assert.NotEmpty(t, done.Result["summary"])

	// Cancelling a finished task conflicts.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+task.ID, nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTaskStatsEndpoint(t *testing.T) {
	srv, orchestrator := newTestServer(t)
	handler := srv.routes()

	payload := []byte(`{"task_type":"generic"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(payload))
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	orchestrator.Wait()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/stats", nil)
	req.Header.Set("X-User-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["total_tasks"])
	assert.EqualValues(t, 100, stats["completion_rate"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.routes()
	uploadVia(t, handler, "alice", "a.txt", "content")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 1, status["documents"])
	assert.NotNil(t, status["config"])
}
