package homophily

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

// Spearman computes the rank correlation between x and y with a two-sided
// p-value from the Student-t approximation. Tied values receive averaged
// ranks, so the statistic is invariant under any monotone transform of
// either input. It needs at least 3 pairs and nonconstant inputs.
func Spearman(x, y []float64) (float64, float64, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("inputs have lengths %d and %d: %w", len(x), len(y), apperrors.ErrDimensionMismatch)
	}

	n := len(x)
	if n < 3 {
		return 0, 0, fmt.Errorf("correlation requires at least 3 pairs, got %d: %w", n, apperrors.ErrInsufficientData)
	}

	rx := ranks(x)
	ry := ranks(y)

	rho, ok := pearson(rx, ry)
	if !ok {
		return 0, 0, fmt.Errorf("correlation undefined for constant input: %w", apperrors.ErrInsufficientData)
	}

	return rho, twoSidedPValue(rho, n), nil
}

// ranks assigns 1-based ranks, averaging over runs of equal values.
func ranks(values []float64) []float64 {
	n := len(values)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		if values[order[a]] != values[order[b]] {
			return values[order[a]] < values[order[b]]
		}

		return order[a] < order[b]
	})

	out := make([]float64, n)

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[order[end]] == values[order[start]] {
			end++
		}

		// Mean of ranks start+1 .. end.
		avg := float64(start+end+1) / 2

		for i := start; i < end; i++ {
			out[order[i]] = avg
		}

		start = end
	}

	return out
}

func pearson(x, y []float64) (float64, bool) {
	n := float64(len(x))

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}

	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY

		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0, false
	}

	return cov / math.Sqrt(varX*varY), true
}

// twoSidedPValue approximates the significance of rho via the t statistic
// with n-2 degrees of freedom. A perfect correlation maps to p = 0.
func twoSidedPValue(rho float64, n int) float64 {
	df := float64(n - 2)

	den := 1 - rho*rho
	if den <= 0 {
		return 0
	}

	t2 := rho * rho * df / den

	return regularizedIncompleteBeta(df/2, 0.5, df/(df+t2))
}

// regularizedIncompleteBeta evaluates I_x(a, b) with the continued fraction
// expansion, switching tails for numerical stability.
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}

	if x >= 1 {
		return 1
	}

	lgab, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)

	front := math.Exp(lgab - lga - lgb + a*math.Log(x) + b*math.Log1p(-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}

	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0

	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}

	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		m2 := float64(2 * m)
		fm := float64(m)

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))

		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}

		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}

		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))

		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}

		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}

		d = 1 / d

		del := d * c
		h *= del

		if math.Abs(del-1) < epsilon {
			break
		}
	}

	return h
}
