package homophily

import (
	"fmt"

	"github.com/molchalih/inst2txt/internal/core/domain"
	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/core/vecmath"
)

// CorrelationResult is the outcome of a rank correlation test.
type CorrelationResult struct {
	// Rho is the Spearman statistic in [-1, 1].
	Rho float64

	// PValue is the two-sided significance.
	PValue float64

	// N is the number of creators the test ran over.
	N int
}

// CentroidDistanceTest correlates each clustered creator's distance to its
// own cluster centroid in the reduced space with its membership confidence.
// Confident members are expected to sit near their centroid, so the
// expected correlation is negative. Noise creators are excluded.
//
// The inputs are aligned by row: coords, labels and confidence describe the
// same creator at the same index.
func CentroidDistanceTest(coords [][]float64, labels []int, confidence []float64, metric string) (*CorrelationResult, error) {
	if len(coords) != len(labels) || len(coords) != len(confidence) {
		return nil, fmt.Errorf("rows disagree: %d coords, %d labels, %d confidences: %w",
			len(coords), len(labels), len(confidence), apperrors.ErrDimensionMismatch)
	}

	centroids, err := clusterCentroids(coords, labels)
	if err != nil {
		return nil, err
	}

	var distances, confidences []float64

	for i, label := range labels {
		if label == domain.NoiseClusterID {
			continue
		}

		d, err := reducedDistance(coords[i], centroids[label], metric)
		if err != nil {
			return nil, err
		}

		distances = append(distances, d)
		confidences = append(confidences, confidence[i])
	}

	rho, p, err := Spearman(distances, confidences)
	if err != nil {
		return nil, fmt.Errorf("centroid distance test: %w", err)
	}

	return &CorrelationResult{Rho: rho, PValue: p, N: len(distances)}, nil
}

// BridgeTest correlates how much each clustered creator sits between
// clusters with its membership confidence. Betweenness is one minus the
// creator's strongest normalized centroid affinity, where affinity decays
// with distance as 1/(1+d). Creators pulled equally by several clusters are
// expected to carry low confidence, so the expected correlation is
// negative. The test needs at least two clusters.
func BridgeTest(coords [][]float64, labels []int, confidence []float64, metric string) (*CorrelationResult, error) {
	if len(coords) != len(labels) || len(coords) != len(confidence) {
		return nil, fmt.Errorf("rows disagree: %d coords, %d labels, %d confidences: %w",
			len(coords), len(labels), len(confidence), apperrors.ErrDimensionMismatch)
	}

	centroids, err := clusterCentroids(coords, labels)
	if err != nil {
		return nil, err
	}

	if len(centroids) < 2 {
		return nil, fmt.Errorf("bridge test requires at least 2 clusters, got %d: %w", len(centroids), apperrors.ErrInsufficientData)
	}

	var bridges, confidences []float64

	for i, label := range labels {
		if label == domain.NoiseClusterID {
			continue
		}

		var total, strongest float64

		strengths := make([]float64, len(centroids))
		for c, centroid := range centroids {
			d, err := reducedDistance(coords[i], centroid, metric)
			if err != nil {
				return nil, err
			}

			strengths[c] = 1 / (1 + d)
			total += strengths[c]
		}

		for _, s := range strengths {
			if normalized := s / total; normalized > strongest {
				strongest = normalized
			}
		}

		bridges = append(bridges, 1-strongest)
		confidences = append(confidences, confidence[i])
	}

	rho, p, err := Spearman(bridges, confidences)
	if err != nil {
		return nil, fmt.Errorf("bridge test: %w", err)
	}

	return &CorrelationResult{Rho: rho, PValue: p, N: len(bridges)}, nil
}

// clusterCentroids returns the mean reduced coordinates per cluster label.
// Labels must be dense from 0, the clusterer's output convention.
func clusterCentroids(coords [][]float64, labels []int) ([][]float64, error) {
	maxLabel := -1
	for _, label := range labels {
		if label > maxLabel {
			maxLabel = label
		}
	}

	if maxLabel < 0 {
		return nil, fmt.Errorf("no clustered creators: %w", apperrors.ErrInsufficientData)
	}

	centroids := make([][]float64, maxLabel+1)
	counts := make([]int, maxLabel+1)

	for i, label := range labels {
		if label == domain.NoiseClusterID {
			continue
		}

		if centroids[label] == nil {
			centroids[label] = make([]float64, len(coords[i]))
		}

		for d, v := range coords[i] {
			centroids[label][d] += v
		}

		counts[label]++
	}

	for label, c := range centroids {
		if c == nil {
			return nil, fmt.Errorf("cluster %d has no members: %w", label, apperrors.ErrInsufficientData)
		}

		for d := range c {
			c[d] /= float64(counts[label])
		}
	}

	return centroids, nil
}

func reducedDistance(a, b []float64, metric string) (float64, error) {
	switch metric {
	case "", "euclidean":
		return vecmath.Euclidean(a, b), nil
	case "cosine":
		return vecmath.CosineDistance64(a, b), nil
	default:
		return 0, fmt.Errorf("unknown metric %q: %w", metric, apperrors.ErrInvalidConfig)
	}
}
