package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperdock/hokan/internal/embedding"
	"github.com/hyperdock/hokan/internal/vector"
)

func BenchmarkDeterministicEmbed(b *testing.B) {
	e := embedding.NewDeterministicEmbedder(384, 100)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Distinct texts defeat the cache so generation cost is measured.
		_, _ = e.Embed(ctx, fmt.Sprintf("benchmark query text %d", i))
	}
}

func BenchmarkDeterministicEmbedCached(b *testing.B) {
	e := embedding.NewDeterministicEmbedder(384, 100)
	ctx := context.Background()
	_, _ = e.Embed(ctx, "benchmark query text for embedding")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkRankBySimilarity(b *testing.B) {
	query := make([]float32, 384)
	query[0] = 1.0
	candidates := make([]vector.Candidate, 1000)
	for i := range candidates {
		emb := make([]float32, 384)
		emb[0] = float32(i) / 1000
		emb[1] = 1 - float32(i)/1000
		candidates[i] = vector.Candidate{ID: string(rune('a' + i%26)), Embedding: emb}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.RankBySimilarity(query, candidates, 0.5, 10)
	}
}
