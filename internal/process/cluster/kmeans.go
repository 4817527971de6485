package cluster

import (
	"fmt"
	"math"
	"math/rand"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/core/vecmath"
)

const kmeansMaxIterations = 100

// KMeans partitions the points into k clusters with seeded kmeans++
// initialization and Lloyd iterations. It is the centroid baseline for
// offline comparison against the density clusterer: every point gets a
// cluster, there is no noise and no membership confidence.
func KMeans(points [][]float64, k int, seed int64) ([]int, [][]float64, error) {
	n := len(points)
	if k < 1 {
		return nil, nil, fmt.Errorf("k must be >= 1, got %d: %w", k, apperrors.ErrInvalidConfig)
	}

	if n < k {
		return nil, nil, fmt.Errorf("kmeans with k=%d requires at least %d points, got %d: %w", k, k, n, apperrors.ErrInsufficientData)
	}

	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, nil, fmt.Errorf("row %d has dimension %d, expected %d: %w", i, len(p), dim, apperrors.ErrDimensionMismatch)
		}
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic baseline, not crypto

	centroids := seedCentroids(points, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := assign(points, centroids, labels)
		recompute(points, centroids, labels)

		if !changed {
			break
		}
	}

	return labels, centroids, nil
}

// seedCentroids picks centers with the kmeans++ rule: the first uniformly,
// the rest weighted by squared distance to the nearest chosen center.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)

	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneRow(points[rng.Intn(n)]))

	weights := make([]float64, n)

	for len(centroids) < k {
		var total float64

		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centroids {
				d := vecmath.Euclidean(p, c)
				if dd := d * d; dd < best {
					best = dd
				}
			}

			weights[i] = best
			total += best
		}

		if total == 0 {
			// All remaining points coincide with a center.
			centroids = append(centroids, cloneRow(points[rng.Intn(n)]))
			continue
		}

		target := rng.Float64() * total

		pick := n - 1
		var acc float64
		for i, w := range weights {
			acc += w
			if acc >= target {
				pick = i
				break
			}
		}

		centroids = append(centroids, cloneRow(points[pick]))
	}

	return centroids
}

func assign(points, centroids [][]float64, labels []int) bool {
	var changed bool

	for i, p := range points {
		best, bestDist := 0, math.Inf(1)

		for c, centroid := range centroids {
			if d := vecmath.Euclidean(p, centroid); d < bestDist {
				bestDist = d
				best = c
			}
		}

		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}

	return changed
}

func recompute(points, centroids [][]float64, labels []int) {
	k := len(centroids)
	dim := len(centroids[0])

	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for i, p := range points {
		c := labels[i]
		counts[c]++

		for d, v := range p {
			sums[c][d] += v
		}
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			// Empty cluster: recenter on the point farthest from its centroid.
			centroids[c] = cloneRow(points[farthestPoint(points, centroids, labels)])
			continue
		}

		for d := range sums[c] {
			centroids[c][d] = sums[c][d] / float64(counts[c])
		}
	}
}

func farthestPoint(points, centroids [][]float64, labels []int) int {
	worst, worstDist := 0, -1.0

	for i, p := range points {
		if d := vecmath.Euclidean(p, centroids[labels[i]]); d > worstDist {
			worstDist = d
			worst = i
		}
	}

	return worst
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)

	return out
}
