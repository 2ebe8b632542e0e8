package docs

import (
	"context"
	"fmt"

	"github.com/hyperdock/hokan/internal/models"
	"github.com/hyperdock/hokan/internal/vector"
)

// FindSimilar ranks the owner's other documents by embedding similarity to
// the document with the given ID. Documents without an embedding are
// excluded. limit <= 0 and threshold <= 0 fall back to defaults.
func (s *Service) FindSimilar(ctx context.Context, id, ownerID string, threshold float64, limit int) ([]*models.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSimTopK
	}
	if threshold <= 0 {
		threshold = defaultSimThresh
	}

	source, err := s.store.GetDocument(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if len(source.Embedding) == 0 {
		return nil, fmt.Errorf("document %s has no embedding", id)
	}

	// Rank against every candidate the owner has, not a page.
	all, err := s.store.ListDocuments(ctx, ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	byID := make(map[string]*models.Document, len(all))
	candidates := make([]vector.Candidate, 0, len(all))
	for _, doc := range all {
		if doc.ID == source.ID || len(doc.Embedding) == 0 {
			continue
		}
		byID[doc.ID] = doc
		candidates = append(candidates, vector.Candidate{ID: doc.ID, Embedding: doc.Embedding})
	}

	matches := vector.RankBySimilarity(source.Embedding, candidates, threshold, limit)
	results := make([]*models.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, &models.SearchResult{
			Document:       byID[m.ID],
			RelevanceScore: m.Similarity,
		})
	}
	return results, nil
}
