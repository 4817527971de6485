// Package vecmath provides the small vector primitives shared by the
// aggregation, reduction, clustering and homophily stages.
package vecmath

import "math"

// CosineSimilarity returns the cosine similarity between two float32 vectors.
// It returns 0 for mismatched lengths, empty inputs or zero-norm vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - CosineSimilarity, clamped at 0 to absorb
// floating point noise on identical vectors.
func CosineDistance(a, b []float32) float64 {
	d := 1 - CosineSimilarity(a, b)
	if d < 0 {
		return 0
	}

	return d
}

// Euclidean32 returns the euclidean distance between two float32 vectors.
func Euclidean32(a, b []float32) float64 {
	var sum float64

	for i := 0; i < len(a) && i < len(b); i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}

// Euclidean returns the euclidean distance between two float64 points.
func Euclidean(a, b []float64) float64 {
	var sum float64

	for i := 0; i < len(a) && i < len(b); i++ {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// CosineDistance64 returns the cosine distance between two float64 points.
// Zero-norm inputs are treated as maximally distant from everything except
// other zero-norm inputs.
func CosineDistance64(a, b []float64) float64 {
	var dot, normA, normB float64

	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 && normB == 0 {
		return 0
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if d < 0 {
		return 0
	}

	return d
}

// Norm returns the L2 norm of a float32 vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}
