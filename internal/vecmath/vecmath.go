// Package vecmath provides the vector primitives used for similarity ranking.
package vecmath

import (
	"errors"
	"math"
	"sort"
)

// ErrShapeMismatch is returned by strict operations when vector lengths differ.
var ErrShapeMismatch = errors.New("vecmath: vector length mismatch")

// CosineSimilarity computes cosine similarity between two vectors.
// It is deliberately total: a zero vector or a length mismatch yields 0
// rather than an error, so scoring paths never have to branch on shape.
// The strict counterparts are DotProduct and EuclideanDistance.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DotProduct computes the dot product of two equal-length vectors.
// Returns ErrShapeMismatch when lengths differ.
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrShapeMismatch
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// EuclideanDistance computes the L2 distance between two equal-length vectors.
// Returns ErrShapeMismatch when lengths differ.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrShapeMismatch
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged rather than dividing by zero.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Scored pairs a candidate index with its similarity to the query.
type Scored struct {
	Index      int
	Similarity float64
}

// TopKBySimilarity returns the candidates whose cosine similarity to query
// is at least threshold, sorted descending, truncated to k. Ties keep input
// order (stable sort). k <= 0 means no truncation.
func TopKBySimilarity(query []float32, candidates [][]float32, threshold float64, k int) []Scored {
	var out []Scored
	for i, c := range candidates {
		sim := CosineSimilarity(query, c)
		if sim >= threshold {
			out = append(out, Scored{Index: i, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
