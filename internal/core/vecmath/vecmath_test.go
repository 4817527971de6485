package vecmath

import (
	"math"
	"testing"
)

const (
	errFmtGot  = "%s = %v, want %v"
	epsilon    = 1e-9
	epsilon32  = 1e-6
	testCosine = "CosineSimilarity"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 0, 0},
			b:    []float32{1, 0, 0},
			want: 1,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1,
		},
		{
			name: "scale invariant",
			a:    []float32{2, 4},
			b:    []float32{1, 2},
			want: 1,
		},
		{
			name: "mismatched lengths",
			a:    []float32{1, 0},
			b:    []float32{1},
			want: 0,
		},
		{
			name: "empty vectors",
			a:    nil,
			b:    nil,
			want: 0,
		},
		{
			name: "zero vector",
			a:    []float32{0, 0},
			b:    []float32{1, 1},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > epsilon32 {
				t.Errorf(errFmtGot, testCosine, got, tt.want)
			}
		})
	}
}

func TestCosineDistanceClamped(t *testing.T) {
	a := []float32{0.111, 0.222, 0.333}
	if d := CosineDistance(a, a); d != 0 {
		t.Errorf(errFmtGot, "CosineDistance(a, a)", d, 0)
	}
}

func TestEuclidean(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}

	if got := Euclidean(a, b); math.Abs(got-5) > epsilon {
		t.Errorf(errFmtGot, "Euclidean", got, 5)
	}

	if got := Euclidean32([]float32{0, 0}, []float32{3, 4}); math.Abs(got-5) > epsilon32 {
		t.Errorf(errFmtGot, "Euclidean32", got, 5)
	}
}

func TestCosineDistance64ZeroNorm(t *testing.T) {
	if got := CosineDistance64([]float64{0, 0}, []float64{1, 1}); got != 1 {
		t.Errorf(errFmtGot, "CosineDistance64 zero vs nonzero", got, 1)
	}

	if got := CosineDistance64([]float64{0, 0}, []float64{0, 0}); got != 0 {
		t.Errorf(errFmtGot, "CosineDistance64 zero vs zero", got, 0)
	}
}

func TestNorm(t *testing.T) {
	if got := Norm([]float32{3, 4}); math.Abs(got-5) > epsilon32 {
		t.Errorf(errFmtGot, "Norm", got, 5)
	}
}
