// Package vector provides cosine similarity and ranking over embedding vectors.
package vector

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Returns 0 when either vector is empty, of different length, or zero-norm;
// this is a defined edge case, not an error.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// L2Norm returns the L2 norm of x.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Candidate pairs an ID with its embedding for similarity ranking.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Match is a candidate that passed the similarity threshold.
type Match struct {
	ID         string
	Similarity float64
}

// RankBySimilarity scores each candidate against query, keeps those with
// similarity >= threshold, sorts descending (stable, so ties keep candidate
// order), and truncates to limit. Candidates without an embedding are skipped.
func RankBySimilarity(query []float32, candidates []Candidate, threshold float64, limit int) []Match {
	if len(query) == 0 || len(candidates) == 0 {
		return nil
	}
	var matches []Match
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		sim := Cosine(query, c.Embedding)
		if sim >= threshold {
			matches = append(matches, Match{ID: c.ID, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
