package reduce

// MinMaxScale rescales each axis of the layout into [0, 1] in place and
// returns the input slice. An axis with no spread collapses to 0. The
// scaling keeps downstream density thresholds comparable across runs whose
// raw layouts differ only in extent.
func MinMaxScale(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return points
	}

	dim := len(points[0])

	for d := 0; d < dim; d++ {
		lo, hi := points[0][d], points[0][d]

		for _, p := range points[1:] {
			if p[d] < lo {
				lo = p[d]
			}

			if p[d] > hi {
				hi = p[d]
			}
		}

		span := hi - lo
		if span == 0 {
			for _, p := range points {
				p[d] = 0
			}

			continue
		}

		for _, p := range points {
			p[d] = (p[d] - lo) / span
		}
	}

	return points
}
