package homophily

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

const errFmtSpearman = "Spearman() error = %v, want %v"

func TestSpearmanPerfectMonotone(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = v * v * v
	}

	rho, p, err := Spearman(x, y)
	if err != nil {
		t.Fatalf(errFmtSpearman, err, nil)
	}

	if rho < 0.999999999 {
		t.Errorf("rho = %v, want 1", rho)
	}

	if p > 1e-6 {
		t.Errorf("p = %v, want near 0", p)
	}
}

func TestSpearmanPerfectInverse(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{10, 9, 8, 7, 6, 5}

	rho, p, err := Spearman(x, y)
	if err != nil {
		t.Fatalf(errFmtSpearman, err, nil)
	}

	if rho > -0.999999999 {
		t.Errorf("rho = %v, want -1", rho)
	}

	if p > 1e-6 {
		t.Errorf("p = %v, want near 0", p)
	}
}

func TestSpearmanTies(t *testing.T) {
	// Tied x values rank as 2.5 each, giving rho = 4.5/sqrt(22.5) and a
	// t-based p of 1 - 0.9^0.5.
	x := []float64{1, 2, 2, 3}
	y := []float64{10, 20, 30, 40}

	rho, p, err := Spearman(x, y)
	if err != nil {
		t.Fatalf(errFmtSpearman, err, nil)
	}

	wantRho := 4.5 / math.Sqrt(22.5)
	if math.Abs(rho-wantRho) > 1e-12 {
		t.Errorf("rho = %v, want %v", rho, wantRho)
	}

	wantP := 1 - math.Sqrt(0.9)
	if math.Abs(p-wantP) > 1e-8 {
		t.Errorf("p = %v, want %v", p, wantP)
	}
}

func TestSpearmanMonotoneInvariance(t *testing.T) {
	x := []float64{0.3, 1.7, 0.9, 2.4, 1.1, 0.5, 3.3}
	y := []float64{5, 1, 4, 0.5, 3, 4.5, 0.1}

	rho, _, err := Spearman(x, y)
	if err != nil {
		t.Fatalf(errFmtSpearman, err, nil)
	}

	transformed := make([]float64, len(y))
	for i, v := range y {
		transformed[i] = math.Exp(v)
	}

	rhoT, _, err := Spearman(x, transformed)
	if err != nil {
		t.Fatalf(errFmtSpearman, err, nil)
	}

	if rho != rhoT {
		t.Errorf("monotone transform changed rho: %v != %v", rho, rhoT)
	}
}

func TestSpearmanErrors(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		y    []float64
		want error
	}{
		{
			name: "length mismatch",
			x:    []float64{1, 2, 3},
			y:    []float64{1, 2},
			want: apperrors.ErrDimensionMismatch,
		},
		{
			name: "too few pairs",
			x:    []float64{1, 2},
			y:    []float64{3, 4},
			want: apperrors.ErrInsufficientData,
		},
		{
			name: "constant input",
			x:    []float64{1, 1, 1, 1},
			y:    []float64{1, 2, 3, 4},
			want: apperrors.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Spearman(tt.x, tt.y)
			if !errors.Is(err, tt.want) {
				t.Errorf(errFmtSpearman, err, tt.want)
			}
		})
	}
}
