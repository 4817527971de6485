package reduce

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

const (
	errFmtNew = "New() error = %v, want %v"
	errFmtFit = "Fit() error = %v, want %v"
)

func TestNewDefaults(t *testing.T) {
	r, err := New(Config{})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	cfg := r.Config()

	if cfg.Neighbors != defaultNeighbors {
		t.Errorf("Neighbors = %d, want %d", cfg.Neighbors, defaultNeighbors)
	}

	if cfg.Components != defaultComponents {
		t.Errorf("Components = %d, want %d", cfg.Components, defaultComponents)
	}

	if cfg.Metric != MetricEuclidean {
		t.Errorf("Metric = %q, want %q", cfg.Metric, MetricEuclidean)
	}

	if cfg.MinDist != defaultMinDist {
		t.Errorf("MinDist = %g, want %g", cfg.MinDist, defaultMinDist)
	}

	if cfg.Epochs != defaultEpochs {
		t.Errorf("Epochs = %d, want %d", cfg.Epochs, defaultEpochs)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "neighbors too small", cfg: Config{Neighbors: 1}},
		{name: "negative components", cfg: Config{Components: -1}},
		{name: "unknown metric", cfg: Config{Metric: "manhattan"}},
		{name: "negative min dist", cfg: Config{MinDist: -0.5}},
		{name: "min dist beyond curve range", cfg: Config{MinDist: 5}},
		{name: "negative epochs", cfg: Config{Epochs: -10}},
		{name: "negative learning rate", cfg: Config{LearningRate: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, apperrors.ErrInvalidConfig) {
				t.Errorf(errFmtNew, err, apperrors.ErrInvalidConfig)
			}
		})
	}
}

func TestFitInsufficientPoints(t *testing.T) {
	r, err := New(Config{Neighbors: 8, Epochs: 10})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	vectors := make([][]float32, 5)
	for i := range vectors {
		vectors[i] = []float32{float32(i), float32(i)}
	}

	if _, err := r.Fit(vectors); !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf(errFmtFit, err, apperrors.ErrInsufficientData)
	}

	if _, err := r.Fit(nil); !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf(errFmtFit, err, apperrors.ErrInsufficientData)
	}
}

func TestFitDimensionMismatch(t *testing.T) {
	r, err := New(Config{Neighbors: 2, Epochs: 10})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	vectors := [][]float32{
		{1, 2},
		{3, 4},
		{5, 6, 7},
	}

	if _, err := r.Fit(vectors); !errors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Errorf(errFmtFit, err, apperrors.ErrDimensionMismatch)
	}
}

func TestFitShapeAndDeterminism(t *testing.T) {
	vectors := randomVectors(40, 6, 1)

	r, err := New(Config{Neighbors: 5, Epochs: 50, Seed: 42})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	first, err := r.Fit(vectors)
	if err != nil {
		t.Fatalf(errFmtFit, err, nil)
	}

	if len(first) != len(vectors) {
		t.Fatalf("rows = %d, want %d", len(first), len(vectors))
	}

	for i, row := range first {
		if len(row) != 2 {
			t.Fatalf("row %d has %d components, want 2", i, len(row))
		}

		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("row %d contains non-finite value %v", i, v)
			}
		}
	}

	second, err := r.Fit(vectors)
	if err != nil {
		t.Fatalf(errFmtFit, err, nil)
	}

	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("rerun diverged at [%d][%d]: %v != %v", i, j, first[i][j], second[i][j])
			}
		}
	}
}

func TestFitSeparatesGroups(t *testing.T) {
	// Two tight groups far apart in the input space. The layout must keep
	// every point closer to its own group than to the other.
	vectors := groupedVectors(t, 8)

	r, err := New(Config{Neighbors: 4, Epochs: 200, Seed: 42})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	layout, err := r.Fit(vectors)
	if err != nil {
		t.Fatalf(errFmtFit, err, nil)
	}

	group := func(i int) int {
		if i < 8 {
			return 0
		}

		return 1
	}

	var within, across float64
	var withinN, acrossN int

	for i := range layout {
		for j := i + 1; j < len(layout); j++ {
			d := squaredDist(layout[i], layout[j])
			if group(i) == group(j) {
				within += d
				withinN++
			} else {
				across += d
				acrossN++
			}
		}
	}

	if within/float64(withinN) >= across/float64(acrossN) {
		t.Fatalf("mean within-group distance %v not below mean cross-group distance %v",
			within/float64(withinN), across/float64(acrossN))
	}

	for i := range layout {
		nearest, best := -1, math.Inf(1)

		for j := range layout {
			if j == i {
				continue
			}

			if d := squaredDist(layout[i], layout[j]); d < best {
				best = d
				nearest = j
			}
		}

		if group(nearest) != group(i) {
			t.Errorf("point %d has nearest layout neighbor %d from the other group", i, nearest)
		}
	}
}

func TestFitCosineMetric(t *testing.T) {
	vectors := randomVectors(20, 8, 3)

	r, err := New(Config{Neighbors: 4, Epochs: 30, Metric: MetricCosine, Seed: 1})
	if err != nil {
		t.Fatalf(errFmtNew, err, nil)
	}

	layout, err := r.Fit(vectors)
	if err != nil {
		t.Fatalf(errFmtFit, err, nil)
	}

	if len(layout) != 20 {
		t.Fatalf("rows = %d, want 20", len(layout))
	}
}

func TestFitCurveMatchesMinDist(t *testing.T) {
	a, b := fitCurve(0.1)

	// The fitted curve must stay near 1 inside MinDist and decay outside.
	near := 1 / (1 + a*math.Pow(0.05, 2*b))
	far := 1 / (1 + a*math.Pow(2.0, 2*b))

	if near < 0.9 {
		t.Errorf("curve at 0.05 = %v, want >= 0.9", near)
	}

	if far > 0.3 {
		t.Errorf("curve at 2.0 = %v, want <= 0.3", far)
	}
}

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test fixture

	vectors := make([][]float32, n)
	for i := range vectors {
		row := make([]float32, dim)
		for j := range row {
			row[j] = float32(rng.NormFloat64())
		}

		vectors[i] = row
	}

	return vectors
}

func groupedVectors(t *testing.T, perGroup int) [][]float32 {
	t.Helper()

	rng := rand.New(rand.NewSource(9)) //nolint:gosec // test fixture

	vectors := make([][]float32, 0, 2*perGroup)

	for g := 0; g < 2; g++ {
		base := make([]float32, 8)
		base[g] = 10

		for i := 0; i < perGroup; i++ {
			row := make([]float32, 8)
			for j := range row {
				row[j] = base[j] + float32(rng.NormFloat64())*0.05
			}

			vectors = append(vectors, row)
		}
	}

	return vectors
}
