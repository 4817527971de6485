package reduce

import (
	"math"
	"testing"
)

func TestMinMaxScale(t *testing.T) {
	points := [][]float64{
		{-2, 10},
		{0, 20},
		{2, 30},
	}

	MinMaxScale(points)

	want := [][]float64{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
	}

	for i := range want {
		for j := range want[i] {
			if math.Abs(points[i][j]-want[i][j]) > 1e-12 {
				t.Errorf("points[%d][%d] = %v, want %v", i, j, points[i][j], want[i][j])
			}
		}
	}
}

func TestMinMaxScaleConstantAxis(t *testing.T) {
	points := [][]float64{
		{5, 1},
		{5, 2},
		{5, 3},
	}

	MinMaxScale(points)

	for i, p := range points {
		if p[0] != 0 {
			t.Errorf("points[%d][0] = %v, want 0 for constant axis", i, p[0])
		}
	}
}

func TestMinMaxScaleEmpty(t *testing.T) {
	if got := MinMaxScale(nil); got != nil {
		t.Errorf("MinMaxScale(nil) = %v, want nil", got)
	}
}
