// Package docs implements the document ingestion/search pipeline.
package docs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperdock/hokan/internal/blob"
	"github.com/hyperdock/hokan/internal/classify"
	"github.com/hyperdock/hokan/internal/embedding"
	"github.com/hyperdock/hokan/internal/extract"
	"github.com/hyperdock/hokan/internal/generate"
	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/storage"
)

// ErrValidation is returned when required ingestion input is missing or empty.
var ErrValidation = errors.New("invalid input")

// summaryMinChars is the minimum extracted-text length for summary generation.
const summaryMinChars = 100

// Relevance score weights for query substring matches.
const (
	emptyQueryScore  = 0.5
	filenameWeight   = 0.3
	contentWeight    = 0.4
	tagWeight        = 0.2
	categoryWeight   = 0.1
	maxRelevance     = 1.0
	defaultSimTopK   = 10
	defaultSimThresh = 0.5
)

// Service owns document records and the stored file bytes. Ingestion is a
// best-effort pipeline: extraction, classification, embedding, and summary
// failures degrade to absent values, but byte and record persistence are
// required (record persistence failure triggers byte cleanup).
type Service struct {
	store      storage.DocumentStore
	blobs      blob.Store
	extractor  extract.Extractor
	classifier classify.Classifier
	embedder   embedding.Embedder
	generator  generate.Generator
	logger     *zap.Logger // optional; when set, logs pipeline degradations
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for pipeline warnings and debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a document service with the given collaborators.
func NewService(
	store storage.DocumentStore,
	blobs blob.Store,
	extractor extract.Extractor,
	classifier classify.Classifier,
	embedder embedding.Embedder,
	generator generate.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		blobs:      blobs,
		extractor:  extractor,
		classifier: classifier,
		embedder:   embedder,
		generator:  generator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest runs the upload pipeline: persist bytes, detect MIME, extract text,
// categorize, tag, embed, summarize, persist the record. Returns the complete
// record, or an error when the input is invalid, the bytes cannot be written,
// or the final record cannot be persisted (in which case the written bytes
// are removed).
func (s *Service) Ingest(ctx context.Context, input *models.UploadInput) (*models.Document, error) {
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file content", ErrValidation)
	}
	if input.Filename == "" {
		return nil, fmt.Errorf("%w: missing filename", ErrValidation)
	}
	if input.OwnerID == "" {
		return nil, fmt.Errorf("%w: missing owner", ErrValidation)
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(input.Filename))
	storedName := id + ext

	if err := s.blobs.Write(storedName, input.Content); err != nil {
		return nil, fmt.Errorf("store file bytes: %w", err)
	}

	mimeType := extract.DetectMIME(input.Filename)

	text, err := s.extractor.Extract(input.Content, mimeType)
	if err != nil {
		s.warn("text extraction failed", id, err)
		text = ""
	}

	category := input.Category
	if category == "" {
		category = classify.DefaultCategory
	}
	if input.AutoCategorize && text != "" {
		category = s.classifier.Categorize(text, input.Filename)
	}

	tags := input.Tags
	if len(tags) == 0 && text != "" {
		tags = s.classifier.Tags(text, input.Filename)
	}

	embedText := text
	if embedText == "" {
		embedText = input.Filename
	}
	vec, err := s.embedder.Embed(ctx, embedText)
	if err != nil {
		s.warn("embedding failed", id, err)
		vec = nil
	}

	var summary string
	if len(text) >= summaryMinChars {
		gen, err := s.generator.Generate(ctx, generate.ActionSummarize, text, nil)
		if err != nil {
			s.warn("summary generation failed", id, err)
		} else {
			summary = gen.Text
		}
	}

	doc := &models.Document{
		ID:               id,
		StoredFilename:   storedName,
		OriginalFilename: input.Filename,
		FileSize:         int64(len(input.Content)),
		FileType:         strings.TrimPrefix(ext, "."),
		MimeType:         mimeType,
		Category:         category,
		Status:           models.DocumentStatusUploaded,
		Tags:             tags,
		OwnerID:          input.OwnerID,
		ExtractedText:    text,
		Summary:          summary,
		Embedding:        vec,
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		// Compensate: the record never became visible, so the bytes must go too.
		if delErr := s.blobs.Delete(storedName); delErr != nil {
			s.warn("cleanup of stored bytes failed", id, delErr)
		}
		return nil, fmt.Errorf("persist document record: %w", err)
	}
	return doc, nil
}

// Search returns documents matching the request for ownerID, scored and
// sorted by relevance (stable on ties). Matching content excerpts are
// attached when requested.
func (s *Service) Search(ctx context.Context, ownerID string, req *models.SearchRequest) ([]*models.SearchResult, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", ErrValidation)
	}
	filter := &storage.DocumentFilter{
		OwnerID:    ownerID,
		Categories: req.Categories,
		Tags:       req.Tags,
		Text:       req.Query,
		Limit:      req.Limit,
	}
	docsFound, err := s.store.QueryDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(docsFound))
	for _, doc := range docsFound {
		result := &models.SearchResult{
			Document:       doc,
			RelevanceScore: relevanceScore(doc, req.Query),
		}
		if req.IncludeContent && req.Query != "" && doc.ExtractedText != "" {
			result.MatchingContent = MatchingExcerpt(doc.ExtractedText, req.Query)
		}
		results = append(results, result)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results, nil
}

// relevanceScore computes the weighted substring score for doc against query.
// An empty query scores a constant 0.5; otherwise contributions from
// filename, extracted text, tags, and category sum up, capped at 1.0.
func relevanceScore(doc *models.Document, query string) float64 {
	if query == "" {
		return emptyQueryScore
	}
	q := strings.ToLower(query)
	score := 0.0
	if strings.Contains(strings.ToLower(doc.OriginalFilename), q) {
		score += filenameWeight
	}
	if doc.ExtractedText != "" && strings.Contains(strings.ToLower(doc.ExtractedText), q) {
		score += contentWeight
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += tagWeight
			break
		}
	}
	if strings.Contains(strings.ToLower(doc.Category), q) {
		score += categoryWeight
	}
	if score > maxRelevance {
		score = maxRelevance
	}
	return score
}

// Get returns the document matching (id, ownerID).
func (s *Service) Get(ctx context.Context, id, ownerID string) (*models.Document, error) {
	return s.store.GetDocument(ctx, id, ownerID)
}

// GetMany returns the documents matching (ids, ownerID). Missing IDs are
// absent from the result.
func (s *Service) GetMany(ctx context.Context, ids []string, ownerID string) ([]*models.Document, error) {
	return s.store.GetDocuments(ctx, ids, ownerID)
}

// List returns up to limit documents owned by ownerID, newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]*models.Document, error) {
	return s.store.ListDocuments(ctx, ownerID, limit)
}

// Count returns the number of documents owned by ownerID.
func (s *Service) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.store.CountDocuments(ctx, ownerID)
}

// UpdateSummary persists a generated summary onto the document record.
func (s *Service) UpdateSummary(ctx context.Context, id, ownerID, summary string) error {
	doc, err := s.store.GetDocument(ctx, id, ownerID)
	if err != nil {
		return err
	}
	doc.Summary = summary
	return s.store.UpdateDocument(ctx, doc)
}

// Delete removes the stored bytes and then the record for (id, ownerID).
// Returns false when no such document exists. Record deletion only happens
// after the bytes are gone, so a record never outlives a dangling file and
// a file never outlives its record.
func (s *Service) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	doc, err := s.store.GetDocument(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.blobs.Delete(doc.StoredFilename); err != nil {
		return false, fmt.Errorf("delete stored bytes: %w", err)
	}
	deleted, err := s.store.DeleteDocument(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete document record: %w", err)
	}
	return deleted, nil
}

func (s *Service) warn(msg, docID string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, zap.String("doc_id", docID), zap.Error(err))
	}
}
