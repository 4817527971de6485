package profile

import (
	"math"
	"testing"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

const (
	errFmtUnexpected = "unexpected error: %v"
	errFmtWantErr    = "error = %v, want %v"
	errFmtValue      = "%s = %v, want %v"
	meanEpsilon      = 1e-6
)

func TestAggregateMean(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 3},
		{3, 2, 1},
		{2, 4, 2},
	}

	got, err := Aggregate(embeddings)
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	want := []float32{2, 2, 2}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > meanEpsilon {
			t.Errorf(errFmtValue, "mean", got, want)
			break
		}
	}
}

func TestAggregateOrderInvariant(t *testing.T) {
	a := [][]float32{
		{0.11, -0.52, 0.33},
		{0.91, 0.02, -0.47},
		{-0.25, 0.68, 0.14},
		{0.05, 0.05, 0.05},
	}
	b := [][]float32{a[3], a[1], a[0], a[2]}

	gotA, err := Aggregate(a)
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	gotB, err := Aggregate(b)
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	for i := range gotA {
		if gotA[i] != gotB[i] {
			t.Fatalf("mean depends on input order: %v vs %v", gotA, gotB)
		}
	}
}

func TestAggregateSingleEmbedding(t *testing.T) {
	got, err := Aggregate([][]float32{{0.5, -0.5}})
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	if got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf(errFmtValue, "mean of one", got, []float32{0.5, -0.5})
	}
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil)
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf(errFmtWantErr, err, apperrors.ErrInsufficientData)
	}
}

func TestAggregateDimensionMismatch(t *testing.T) {
	_, err := Aggregate([][]float32{{1, 2, 3}, {1, 2}})
	if !apperrors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Errorf(errFmtWantErr, err, apperrors.ErrDimensionMismatch)
	}
}

func TestBuildOrderedAndSkips(t *testing.T) {
	input := map[int64][][]float32{
		30: {{0, 1}, {0, 1}},
		10: {{1, 0}},
		20: nil,
	}

	set, err := Build(input)
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	if set.Len() != 2 {
		t.Fatalf(errFmtValue, "Len()", set.Len(), 2)
	}

	if set.IDs[0] != 10 || set.IDs[1] != 30 {
		t.Errorf(errFmtValue, "IDs", set.IDs, []int64{10, 30})
	}

	if len(set.Skipped) != 1 || set.Skipped[0] != 20 {
		t.Errorf(errFmtValue, "Skipped", set.Skipped, []int64{20})
	}

	if set.Samples[0] != 1 || set.Samples[1] != 2 {
		t.Errorf(errFmtValue, "Samples", set.Samples, []int{1, 2})
	}

	if set.Dim != 2 {
		t.Errorf(errFmtValue, "Dim", set.Dim, 2)
	}
}

func TestBuildAllEmpty(t *testing.T) {
	_, err := Build(map[int64][][]float32{1: nil, 2: {}})
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf(errFmtWantErr, err, apperrors.ErrInsufficientData)
	}
}

func TestBuildCrossCreatorDimensionMismatch(t *testing.T) {
	input := map[int64][][]float32{
		1: {{1, 0, 0}},
		2: {{0, 1}},
	}

	_, err := Build(input)
	if !apperrors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Errorf(errFmtWantErr, err, apperrors.ErrDimensionMismatch)
	}
}

func TestBuildPolarScenario(t *testing.T) {
	// Two creators near [1,0,0,0], two near [0,1,0,0].
	input := map[int64][][]float32{
		1: {{0.99, 0.01, 0, 0.01}, {0.98, 0.02, 0.01, 0}},
		2: {{0.97, 0, 0.02, 0.01}, {1, 0.01, 0, 0}},
		3: {{0.01, 0.99, 0, 0}, {0.02, 0.98, 0.01, 0.01}},
		4: {{0, 0.97, 0.02, 0}, {0.01, 1, 0, 0.01}},
	}

	set, err := Build(input)
	if err != nil {
		t.Fatalf(errFmtUnexpected, err)
	}

	for i, id := range set.IDs {
		vec := set.Vectors[i]

		var wantAxis int
		if id <= 2 {
			wantAxis = 0
		} else {
			wantAxis = 1
		}

		for j := range vec {
			if j == wantAxis {
				if vec[j] < 0.9 {
					t.Errorf("creator %d axis %d = %v, want > 0.9", id, j, vec[j])
				}
			} else if vec[j] > 0.1 {
				t.Errorf("creator %d axis %d = %v, want < 0.1", id, j, vec[j])
			}
		}
	}
}
