package reduce

import (
	"fmt"
	"math"
	"math/rand"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

const (
	powerIterations  = 200
	powerConvergence = 1e-10
	degenerateNorm   = 1e-12
)

// PCA projects the vectors onto their top principal components and returns
// the n x components score matrix. It is a variance-maximizing linear
// baseline: it does not preserve local neighborhood structure and must not
// feed the density clusterer in production runs.
//
// The decomposition works on the n x n Gram matrix of the centered data, so
// cost scales with the number of creators rather than the embedding
// dimension. Components beyond the data rank come out as zero scores.
func PCA(vectors [][]float32, components int, seed int64) ([][]float64, error) {
	n := len(vectors)
	if n < 2 {
		return nil, fmt.Errorf("pca requires at least 2 points, got %d: %w", n, apperrors.ErrInsufficientData)
	}

	if components < 1 {
		return nil, fmt.Errorf("pca components must be >= 1, got %d: %w", components, apperrors.ErrInvalidConfig)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, expected %d: %w", i, len(v), dim, apperrors.ErrDimensionMismatch)
		}
	}

	centered := center(vectors)
	gram := gramMatrix(centered)

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic layout, not crypto

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, components)
	}

	for c := 0; c < components; c++ {
		eigval, eigvec := powerIterate(gram, rng)
		if eigval <= degenerateNorm {
			break
		}

		scale := math.Sqrt(eigval)
		for i := 0; i < n; i++ {
			scores[i][c] = eigvec[i] * scale
		}

		deflate(gram, eigval, eigvec)
	}

	return scores, nil
}

func center(vectors [][]float32) [][]float64 {
	n := len(vectors)
	dim := len(vectors[0])

	mean := make([]float64, dim)

	for _, v := range vectors {
		for j, x := range v {
			mean[j] += float64(x)
		}
	}

	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := make([][]float64, n)
	for i, v := range vectors {
		row := make([]float64, dim)
		for j, x := range v {
			row[j] = float64(x) - mean[j]
		}

		centered[i] = row
	}

	return centered
}

func gramMatrix(centered [][]float64) [][]float64 {
	n := len(centered)

	gram := make([][]float64, n)
	for i := range gram {
		gram[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var dot float64
			for k := range centered[i] {
				dot += centered[i][k] * centered[j][k]
			}

			gram[i][j] = dot
			gram[j][i] = dot
		}
	}

	return gram
}

// powerIterate finds the dominant eigenpair of a symmetric matrix.
func powerIterate(m [][]float64, rng *rand.Rand) (float64, []float64) {
	n := len(m)

	vec := make([]float64, n)
	for i := range vec {
		vec[i] = rng.Float64() - 0.5
	}

	normalize(vec)

	next := make([]float64, n)

	var eigval float64

	for iter := 0; iter < powerIterations; iter++ {
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += m[i][j] * vec[j]
			}

			next[i] = sum
		}

		norm := vectorNorm(next)
		if norm < degenerateNorm {
			return 0, vec
		}

		for i := range next {
			next[i] /= norm
		}

		delta := 0.0
		for i := range vec {
			delta += math.Abs(next[i] - vec[i])
		}

		copy(vec, next)

		eigval = norm

		if delta < powerConvergence {
			break
		}
	}

	return eigval, vec
}

func deflate(m [][]float64, eigval float64, eigvec []float64) {
	n := len(m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m[i][j] -= eigval * eigvec[i] * eigvec[j]
		}
	}
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}

	return math.Sqrt(sum)
}

func normalize(v []float64) {
	norm := vectorNorm(v)
	if norm < degenerateNorm {
		return
	}

	for i := range v {
		v[i] /= norm
	}
}
