// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperdock/hokan/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		file_type TEXT,
		mime_type TEXT,
		category TEXT,
		status TEXT,
		tags TEXT,
		user_id TEXT NOT NULL,
		extracted_text TEXT,
		content_summary TEXT,
		embedding TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
	CREATE INDEX IF NOT EXISTS idx_documents_user_category ON documents(user_id, category);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		task_type TEXT NOT NULL,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		progress REAL NOT NULL DEFAULT 0,
		result TEXT,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	`
	_, err := db.Exec(schema)
	return err
}

const documentColumns = `id, filename, original_filename, file_size, file_type, mime_type,
	category, status, tags, user_id, extracted_text, content_summary, embedding, metadata,
	created_at, updated_at`

// CreateDocument inserts a document record.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	tagsJSON, embeddingJSON, metadataJSON, err := marshalDocumentFields(doc)
	if err != nil {
		return err
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.StoredFilename, doc.OriginalFilename, doc.FileSize, doc.FileType,
		doc.MimeType, doc.Category, doc.Status, tagsJSON, doc.OwnerID, doc.ExtractedText,
		doc.Summary, embeddingJSON, metadataJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns the document matching (id, ownerID), or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND user_id = ?`, id, ownerID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocuments returns the documents matching (ids, ownerID). Missing IDs are
// simply absent from the result; callers detect them by comparing lengths.
func (s *SQLiteStorage) GetDocuments(ctx context.Context, ids []string, ownerID string) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, ownerID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id IN (`+placeholders+`) AND user_id = ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// UpdateDocument updates an existing document, matched by (ID, OwnerID).
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	tagsJSON, embeddingJSON, metadataJSON, err := marshalDocumentFields(doc)
	if err != nil {
		return err
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET filename = ?, original_filename = ?, file_size = ?, file_type = ?,
		 mime_type = ?, category = ?, status = ?, tags = ?, extracted_text = ?,
		 content_summary = ?, embedding = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		doc.StoredFilename, doc.OriginalFilename, doc.FileSize, doc.FileType, doc.MimeType,
		doc.Category, doc.Status, tagsJSON, doc.ExtractedText, doc.Summary, embeddingJSON,
		metadataJSON, doc.UpdatedAt, doc.ID, doc.OwnerID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes the document matching (id, ownerID) and reports
// whether a record was removed.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// QueryDocuments returns documents matching the filter, newest first, capped
// at filter.Limit. Candidates beyond the limit are not fetched.
func (s *SQLiteStorage) QueryDocuments(ctx context.Context, filter *DocumentFilter) ([]*models.Document, error) {
	var (
		conds []string
		args  []interface{}
	)
	conds = append(conds, "user_id = ?")
	args = append(args, filter.OwnerID)

	if len(filter.Categories) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Categories)-1) + "?"
		conds = append(conds, "category IN ("+placeholders+")")
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	if len(filter.Tags) > 0 {
		// Tags are stored as a JSON array; membership is a substring match on
		// the quoted tag.
		var tagConds []string
		for _, t := range filter.Tags {
			tagConds = append(tagConds, "tags LIKE ?")
			args = append(args, `%"`+t+`"%`)
		}
		conds = append(conds, "("+strings.Join(tagConds, " OR ")+")")
	}
	if filter.Text != "" {
		pattern := "%" + strings.ToLower(filter.Text) + "%"
		conds = append(conds, `(lower(original_filename) LIKE ? OR lower(extracted_text) LIKE ? OR lower(content_summary) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+strings.Join(conds, " AND ")+
			` ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ListDocuments returns up to limit documents for ownerID, newest first.
// limit <= 0 returns every document the owner has.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, ownerID string, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// CountDocuments returns the number of documents owned by ownerID.
func (s *SQLiteStorage) CountDocuments(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = ?`, ownerID).Scan(&count)
	return count, err
}

func marshalDocumentFields(doc *models.Document) (tagsJSON, embeddingJSON, metadataJSON string, err error) {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	var embedding []byte
	if doc.Embedding != nil {
		embedding, err = json.Marshal(doc.Embedding)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to marshal embedding: %w", err)
		}
	}
	var metadata []byte
	if doc.Metadata != nil {
		metadata, err = json.Marshal(doc.Metadata)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}
	return string(tags), string(embedding), string(metadata), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc           models.Document
		tagsJSON      sql.NullString
		extracted     sql.NullString
		summary       sql.NullString
		embeddingJSON sql.NullString
		metadataJSON  sql.NullString
	)
	err := row.Scan(&doc.ID, &doc.StoredFilename, &doc.OriginalFilename, &doc.FileSize,
		&doc.FileType, &doc.MimeType, &doc.Category, &doc.Status, &tagsJSON, &doc.OwnerID,
		&extracted, &summary, &embeddingJSON, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.ExtractedText = extracted.String
	doc.Summary = summary.String
	if tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &doc.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &doc.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	if metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
