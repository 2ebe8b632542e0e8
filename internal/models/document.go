// Package models defines core data structures for documents, tasks, and search results.
package models

import "time"

// Document statuses.
const (
	DocumentStatusUploaded = "uploaded"
)

// Document represents a stored document with derived metadata.
// OwnerID is set once at ingestion and never changes. Embedding is either
// absent or exactly the configured dimension (default 384).
type Document struct {
	ID               string                 `json:"id" db:"id"`
	StoredFilename   string                 `json:"filename" db:"filename"`
	OriginalFilename string                 `json:"original_filename" db:"original_filename"`
	FileSize         int64                  `json:"file_size" db:"file_size"`
	FileType         string                 `json:"file_type" db:"file_type"`
	MimeType         string                 `json:"mime_type" db:"mime_type"`
	Category         string                 `json:"category" db:"category"`
	Status           string                 `json:"status" db:"status"`
	Tags             []string               `json:"tags" db:"tags"`
	OwnerID          string                 `json:"user_id" db:"user_id"`
	ExtractedText    string                 `json:"extracted_text,omitempty" db:"extracted_text"`
	Summary          string                 `json:"content_summary,omitempty" db:"content_summary"`
	Embedding        []float32              `json:"-" db:"-"`
	Metadata         map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" db:"updated_at"`
}

// UploadInput is the input for ingesting a new document.
type UploadInput struct {
	Filename       string   `json:"filename"`
	Content        []byte   `json:"-"`
	OwnerID        string   `json:"user_id"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	AutoCategorize bool     `json:"auto_categorize"`
}

// SearchRequest represents a document search with optional filters.
// An empty Query matches everything for the owner (every hit scores 0.5).
type SearchRequest struct {
	Query          string   `json:"query"`
	Categories     []string `json:"categories,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	IncludeContent bool     `json:"include_content,omitempty"`
}

// Normalize clamps the limit into [1, maxLimit], applying defaultLimit when unset.
func (r *SearchRequest) Normalize(defaultLimit, maxLimit int) {
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
}

// SearchResult pairs a document with its computed relevance score in [0, 1]
// and an optional excerpt around the first query match.
type SearchResult struct {
	Document        *Document `json:"document"`
	RelevanceScore  float64   `json:"relevance_score"`
	MatchingContent string    `json:"matching_content,omitempty"`
}
