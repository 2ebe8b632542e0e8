package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/hyperdock/hokan/pkg/utils"
)

// defaultDimensions is the embedding length used when none is configured.
const defaultDimensions = 384

// semanticKeyword boosts fixed leading dimensions when the keyword appears in
// the text, so documents sharing domain vocabulary land closer together.
type semanticKeyword struct {
	word    string
	weights []float32
}

var semanticKeywords = []semanticKeyword{
	{"contract", []float32{0.8, 0.2, 0.1}},
	{"invoice", []float32{0.1, 0.8, 0.2}},
	{"hr", []float32{0.2, 0.1, 0.8}},
	{"compliance", []float32{0.6, 0.4, 0.3}},
	{"urgent", []float32{0.9, 0.1, 0.1}},
	{"signature", []float32{0.7, 0.3, 0.2}},
	{"review", []float32{0.4, 0.6, 0.4}},
	{"quarterly", []float32{0.3, 0.7, 0.2}},
}

// DeterministicEmbedder produces reproducible pseudo-embeddings: the vector
// is a pure function of the trimmed text. It is NOT semantic; it stands in
// for a real model behind the same Embedder contract.
type DeterministicEmbedder struct {
	dimensions int
	cache      *Cache
}

// NewDeterministicEmbedder returns an embedder of the given dimensions with a
// results cache of cacheSize entries. Non-positive arguments fall back to
// defaults.
func NewDeterministicEmbedder(dimensions, cacheSize int) *DeterministicEmbedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	return &DeterministicEmbedder{
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
	}
}

// Embed returns the embedding for text. Empty (or all-whitespace) text maps
// to the exact zero vector. Identical text always yields an identical vector;
// results are cached by content hash.
func (e *DeterministicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, e.dimensions), nil
	}
	key := ContentHash(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}
	vec := e.generate(text)
	e.cache.Set(key, vec)
	return vec, nil
}

// generate derives the vector: seed a PRNG from a stable hash of the text,
// sample normal values, add keyword weights onto fixed dimensions, then
// L2-normalize. A zero-norm vector is returned unnormalized.
func (e *DeterministicEmbedder) generate(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}

	textLower := strings.ToLower(text)
	for _, kw := range semanticKeywords {
		if !strings.Contains(textLower, kw.word) {
			continue
		}
		for i, w := range kw.weights {
			if i < len(vec) {
				vec[i] += w
			}
		}
	}

	utils.NormalizeL2(vec)
	return vec
}

// EmbedBatch calls Embed for each text.
func (e *DeterministicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *DeterministicEmbedder) Dimensions() int {
	return e.dimensions
}

// CacheSize returns the number of cached embeddings.
func (e *DeterministicEmbedder) CacheSize() int {
	return e.cache.Len()
}

// Close is a no-op for DeterministicEmbedder.
func (e *DeterministicEmbedder) Close() error {
	return nil
}

// ContentHash returns the SHA-256 hex digest of text, used as the cache key.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
