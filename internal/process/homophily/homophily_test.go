package homophily

import (
	"errors"
	"testing"

	"github.com/molchalih/inst2txt/internal/core/domain"
	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

// dumbbellFixture places two clusters on a line with two creators drifting
// toward the middle. Both the distance to the own centroid and the
// betweenness score are strictly ordered, and the confidences run in
// exactly the opposite order.
func dumbbellFixture() ([][]float64, []int, []float64) {
	coords := [][]float64{
		{0}, {0.02}, {0.04}, {0.06}, {0.48},
		{0.99}, {0.97}, {0.95}, {0.93}, {0.55},
	}

	labels := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}

	confidence := []float64{0.3, 0.5, 0.7, 0.9, 0.1, 0.4, 0.6, 0.8, 1.0, 0.2}

	return coords, labels, confidence
}

func TestCentroidDistanceTestPerfectNegative(t *testing.T) {
	coords, labels, confidence := dumbbellFixture()

	result, err := CentroidDistanceTest(coords, labels, confidence, "euclidean")
	if err != nil {
		t.Fatalf("CentroidDistanceTest() error = %v, want nil", err)
	}

	if result.Rho > -0.999999 {
		t.Errorf("Rho = %v, want -1", result.Rho)
	}

	if result.PValue > 1e-6 {
		t.Errorf("PValue = %v, want near 0", result.PValue)
	}

	if result.N != 10 {
		t.Errorf("N = %d, want 10", result.N)
	}
}

func TestCentroidDistanceTestExcludesNoise(t *testing.T) {
	coords, labels, confidence := dumbbellFixture()

	coords = append(coords, []float64{5})
	labels = append(labels, domain.NoiseClusterID)
	confidence = append(confidence, 0)

	result, err := CentroidDistanceTest(coords, labels, confidence, "euclidean")
	if err != nil {
		t.Fatalf("CentroidDistanceTest() error = %v, want nil", err)
	}

	if result.N != 10 {
		t.Errorf("N = %d, want 10", result.N)
	}

	if result.Rho > -0.999999 {
		t.Errorf("Rho = %v, want -1", result.Rho)
	}
}

func TestCentroidDistanceTestSingleCluster(t *testing.T) {
	coords := [][]float64{{0}, {0.02}, {0.04}, {0.06}, {0.48}}
	labels := []int{0, 0, 0, 0, 0}

	// Distances to the centroid at 0.12 are 0.12, 0.10, 0.08, 0.06, 0.36.
	confidence := []float64{0.4, 0.6, 0.8, 1.0, 0.2}

	result, err := CentroidDistanceTest(coords, labels, confidence, "")
	if err != nil {
		t.Fatalf("CentroidDistanceTest() error = %v, want nil", err)
	}

	if result.Rho > -0.999999 {
		t.Errorf("Rho = %v, want -1", result.Rho)
	}
}

func TestCentroidDistanceTestErrors(t *testing.T) {
	coords, labels, confidence := dumbbellFixture()

	if _, err := CentroidDistanceTest(coords[:5], labels, confidence, "euclidean"); !errors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Errorf("CentroidDistanceTest() error = %v, want %v", err, apperrors.ErrDimensionMismatch)
	}

	noise := []int{
		domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID,
		domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID, domain.NoiseClusterID,
	}

	if _, err := CentroidDistanceTest(coords, noise, confidence, "euclidean"); !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("CentroidDistanceTest() error = %v, want %v", err, apperrors.ErrInsufficientData)
	}

	if _, err := CentroidDistanceTest(coords, labels, confidence, "minkowski"); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("CentroidDistanceTest() error = %v, want %v", err, apperrors.ErrInvalidConfig)
	}
}

func TestBridgeTestPerfectNegative(t *testing.T) {
	coords, labels, confidence := dumbbellFixture()

	result, err := BridgeTest(coords, labels, confidence, "euclidean")
	if err != nil {
		t.Fatalf("BridgeTest() error = %v, want nil", err)
	}

	if result.Rho > -0.999999 {
		t.Errorf("Rho = %v, want -1", result.Rho)
	}

	if result.PValue > 1e-6 {
		t.Errorf("PValue = %v, want near 0", result.PValue)
	}

	if result.N != 10 {
		t.Errorf("N = %d, want 10", result.N)
	}
}

func TestBridgeTestSingleCluster(t *testing.T) {
	coords := [][]float64{{0}, {1}, {2}, {3}}
	labels := []int{0, 0, 0, 0}
	confidence := []float64{1, 0.9, 0.8, 0.7}

	_, err := BridgeTest(coords, labels, confidence, "euclidean")
	if !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("BridgeTest() error = %v, want %v", err, apperrors.ErrInsufficientData)
	}
}

func TestBridgeTestConstantConfidence(t *testing.T) {
	coords, labels, _ := dumbbellFixture()

	confidence := make([]float64, len(labels))
	for i := range confidence {
		confidence[i] = 0.5
	}

	_, err := BridgeTest(coords, labels, confidence, "euclidean")
	if !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("BridgeTest() error = %v, want %v", err, apperrors.ErrInsufficientData)
	}
}
