package reduce

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

const (
	errFmtPCA      = "PCA() error = %v, want %v"
	errFmtPCAScore = "score[%d] = %v, want %v"
	pcaEpsilon     = 1e-6
)

func TestPCAPreservesLineDistances(t *testing.T) {
	// Four collinear points: the first component must recover their spacing
	// regardless of eigenvector sign.
	vectors := [][]float32{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{3, 0, 0},
	}

	scores, err := PCA(vectors, 1, 42)
	if err != nil {
		t.Fatalf(errFmtPCA, err, nil)
	}

	if len(scores) != 4 || len(scores[0]) != 1 {
		t.Fatalf("scores shape = %dx%d, want 4x1", len(scores), len(scores[0]))
	}

	gap01 := math.Abs(scores[0][0] - scores[1][0])
	gap03 := math.Abs(scores[0][0] - scores[3][0])

	if math.Abs(gap01-1) > pcaEpsilon {
		t.Errorf("adjacent gap = %v, want 1", gap01)
	}

	if math.Abs(gap03-3) > pcaEpsilon {
		t.Errorf("end-to-end gap = %v, want 3", gap03)
	}
}

func TestPCADeterministic(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{0, 1, 0, 1},
		{2, 2, 2, 2},
		{5, 0, 5, 0},
	}

	first, err := PCA(vectors, 2, 7)
	if err != nil {
		t.Fatalf(errFmtPCA, err, nil)
	}

	second, err := PCA(vectors, 2, 7)
	if err != nil {
		t.Fatalf(errFmtPCA, err, nil)
	}

	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("rerun diverged at [%d][%d]: %v != %v", i, j, first[i][j], second[i][j])
			}
		}
	}
}

func TestPCAZeroVariance(t *testing.T) {
	vectors := [][]float32{
		{1, 1},
		{1, 1},
		{1, 1},
	}

	scores, err := PCA(vectors, 2, 42)
	if err != nil {
		t.Fatalf(errFmtPCA, err, nil)
	}

	for i, row := range scores {
		for _, v := range row {
			if v != 0 {
				t.Errorf(errFmtPCAScore, i, v, 0.0)
			}
		}
	}
}

func TestPCAErrors(t *testing.T) {
	tests := []struct {
		name       string
		vectors    [][]float32
		components int
		want       error
	}{
		{
			name:       "too few points",
			vectors:    [][]float32{{1, 2}},
			components: 1,
			want:       apperrors.ErrInsufficientData,
		},
		{
			name:       "zero components",
			vectors:    [][]float32{{1, 2}, {3, 4}},
			components: 0,
			want:       apperrors.ErrInvalidConfig,
		},
		{
			name:       "ragged rows",
			vectors:    [][]float32{{1, 2}, {3, 4, 5}},
			components: 1,
			want:       apperrors.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PCA(tt.vectors, tt.components, 42)
			if !errors.Is(err, tt.want) {
				t.Errorf(errFmtPCA, err, tt.want)
			}
		})
	}
}
