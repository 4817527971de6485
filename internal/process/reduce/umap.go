// Package reduce projects high-dimensional creator profiles into a
// low-dimensional space while preserving local neighborhood structure.
//
// The reducer builds a fuzzy neighborhood graph over the input points and
// optimizes a low-dimensional layout by stochastic gradient descent, pulling
// graph neighbors together and pushing sampled non-neighbors apart. Runs are
// deterministic for a fixed seed. A linear PCA baseline lives alongside for
// offline comparison only.
package reduce

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/core/vecmath"
)

// Supported input-space metrics. The output layout is always euclidean.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

const (
	defaultNeighbors    = 15
	defaultComponents   = 2
	defaultMinDist      = 0.1
	defaultEpochs       = 300
	defaultLearningRate = 1.0

	// spread fixes the scale of the target membership curve.
	spread = 1.0

	negativeSampleRate = 5
	gradientClip       = 4.0

	sigmaIterations = 64
	sigmaTolerance  = 1e-5
	minSigma        = 1e-10

	initRange  = 10.0
	initJitter = 1e-4
)

// Config controls the reducer. Zero values fall back to defaults tuned for
// a few hundred to a few thousand creator profiles.
type Config struct {
	// Neighbors is the local neighborhood size. Larger values favor global
	// structure over local detail.
	Neighbors int

	// Components is the output dimensionality.
	Components int

	// Metric is the input-space distance, MetricEuclidean or MetricCosine.
	Metric string

	// MinDist is the minimum spacing between points in the layout.
	MinDist float64

	// Epochs is the number of optimization passes.
	Epochs int

	// LearningRate is the initial SGD step size. It decays linearly to zero.
	LearningRate float64

	// Seed drives every random choice: init jitter and negative sampling.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Neighbors == 0 {
		c.Neighbors = defaultNeighbors
	}

	if c.Components == 0 {
		c.Components = defaultComponents
	}

	if c.Metric == "" {
		c.Metric = MetricEuclidean
	}

	if c.MinDist == 0 {
		c.MinDist = defaultMinDist
	}

	if c.Epochs == 0 {
		c.Epochs = defaultEpochs
	}

	if c.LearningRate == 0 {
		c.LearningRate = defaultLearningRate
	}

	return c
}

func (c Config) validate() error {
	if c.Neighbors < 2 {
		return fmt.Errorf("neighbors must be >= 2, got %d: %w", c.Neighbors, apperrors.ErrInvalidConfig)
	}

	if c.Components < 1 {
		return fmt.Errorf("components must be >= 1, got %d: %w", c.Components, apperrors.ErrInvalidConfig)
	}

	if c.Metric != MetricEuclidean && c.Metric != MetricCosine {
		return fmt.Errorf("unknown metric %q: %w", c.Metric, apperrors.ErrInvalidConfig)
	}

	if c.MinDist < 0 || c.MinDist >= 3*spread {
		return fmt.Errorf("min dist must be in [0, %g), got %g: %w", 3*spread, c.MinDist, apperrors.ErrInvalidConfig)
	}

	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be >= 1, got %d: %w", c.Epochs, apperrors.ErrInvalidConfig)
	}

	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be > 0, got %g: %w", c.LearningRate, apperrors.ErrInvalidConfig)
	}

	return nil
}

// Reducer computes neighborhood-preserving low-dimensional layouts.
type Reducer struct {
	cfg Config
}

// New validates the config, fills defaults and returns a ready reducer.
func New(cfg Config) (*Reducer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Reducer{cfg: cfg}, nil
}

// Config returns the effective configuration after defaulting.
func (r *Reducer) Config() Config {
	return r.cfg
}

// Fit computes the layout for the given points. Row order is preserved:
// output row i is the projection of input row i. Fitting needs strictly more
// points than the neighborhood size.
func (r *Reducer) Fit(vectors [][]float32) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, fmt.Errorf("reduction requires at least 1 point: %w", apperrors.ErrInsufficientData)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, expected %d: %w", i, len(v), dim, apperrors.ErrDimensionMismatch)
		}
	}

	if n <= r.cfg.Neighbors {
		return nil, fmt.Errorf("reduction with %d neighbors requires at least %d points, got %d: %w",
			r.cfg.Neighbors, r.cfg.Neighbors+1, n, apperrors.ErrInsufficientData)
	}

	graph := r.neighborGraph(vectors)
	edges := symmetrize(n, graph)

	a, b := fitCurve(r.cfg.MinDist)

	rng := rand.New(rand.NewSource(r.cfg.Seed)) //nolint:gosec // deterministic layout, not crypto

	embedding, err := r.initEmbedding(vectors, rng)
	if err != nil {
		return nil, err
	}

	r.optimize(embedding, edges, a, b, rng)

	return embedding, nil
}

type neighborSet struct {
	indices   []int
	distances []float64
	weights   []float64
}

// neighborGraph finds the k nearest neighbors of every point and converts
// distances into membership strengths via a locally adaptive kernel. The
// kernel shifts by the nearest-neighbor distance and scales so that the
// total membership mass equals log2(k).
func (r *Reducer) neighborGraph(vectors [][]float32) []neighborSet {
	n := len(vectors)
	k := r.cfg.Neighbors

	sets := make([]neighborSet, n)
	target := math.Log2(float64(k))

	type candidate struct {
		index int
		dist  float64
	}

	candidates := make([]candidate, 0, n-1)

	for i := 0; i < n; i++ {
		candidates = candidates[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}

			candidates = append(candidates, candidate{index: j, dist: r.distance(vectors[i], vectors[j])})
		}

		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].dist != candidates[b].dist {
				return candidates[a].dist < candidates[b].dist
			}

			return candidates[a].index < candidates[b].index
		})

		set := neighborSet{
			indices:   make([]int, k),
			distances: make([]float64, k),
			weights:   make([]float64, k),
		}

		for c := 0; c < k; c++ {
			set.indices[c] = candidates[c].index
			set.distances[c] = candidates[c].dist
		}

		rho := set.distances[0]
		sigma := smoothBandwidth(set.distances, rho, target)

		for c := 0; c < k; c++ {
			d := set.distances[c] - rho
			if d <= 0 {
				set.weights[c] = 1
				continue
			}

			set.weights[c] = math.Exp(-d / sigma)
		}

		sets[i] = set
	}

	return sets
}

func (r *Reducer) distance(a, b []float32) float64 {
	if r.cfg.Metric == MetricCosine {
		return vecmath.CosineDistance(a, b)
	}

	return vecmath.Euclidean32(a, b)
}

// smoothBandwidth binary-searches the kernel bandwidth so the shifted
// exponential weights sum to the target mass.
func smoothBandwidth(distances []float64, rho, target float64) float64 {
	lo, hi := 0.0, math.Inf(1)
	mid := 1.0

	for iter := 0; iter < sigmaIterations; iter++ {
		var sum float64

		for _, dist := range distances {
			d := dist - rho
			if d <= 0 {
				sum++
				continue
			}

			sum += math.Exp(-d / mid)
		}

		if math.Abs(sum-target) < sigmaTolerance {
			break
		}

		if sum > target {
			hi = mid
			mid = (lo + hi) / 2
			continue
		}

		lo = mid
		if math.IsInf(hi, 1) {
			mid *= 2
		} else {
			mid = (lo + hi) / 2
		}
	}

	if mid < minSigma {
		mid = minSigma
	}

	return mid
}

type edge struct {
	from   int
	to     int
	weight float64
}

// symmetrize fuses the directed neighbor weights into an undirected fuzzy
// graph using the probabilistic union w1 + w2 - w1*w2, then emits each
// surviving edge in both directions for the sampler.
func symmetrize(n int, sets []neighborSet) []edge {
	type pair struct {
		lo, hi int
	}

	union := make(map[pair]float64, n*len(sets[0].indices))

	for i, set := range sets {
		for c, j := range set.indices {
			key := pair{lo: i, hi: j}
			if j < i {
				key = pair{lo: j, hi: i}
			}

			w1 := union[key]
			w2 := set.weights[c]
			union[key] = w1 + w2 - w1*w2
		}
	}

	keys := make([]pair, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(a, b int) bool {
		if keys[a].lo != keys[b].lo {
			return keys[a].lo < keys[b].lo
		}

		return keys[a].hi < keys[b].hi
	})

	edges := make([]edge, 0, 2*len(keys))
	for _, key := range keys {
		w := union[key]
		edges = append(edges,
			edge{from: key.lo, to: key.hi, weight: w},
			edge{from: key.hi, to: key.lo, weight: w},
		)
	}

	return edges
}

// fitCurve fits the differentiable membership curve 1/(1+a*x^(2b)) to the
// target shape: flat at 1 up to MinDist, then exponential decay. A two-stage
// grid search keeps the fit dependency-free and deterministic.
func fitCurve(minDist float64) (float64, float64) {
	const (
		samples    = 300
		coarseGrid = 64
		fineGrid   = 32
	)

	xs := make([]float64, samples)
	ys := make([]float64, samples)

	for i := 0; i < samples; i++ {
		x := 3 * spread * float64(i+1) / samples
		xs[i] = x

		if x <= minDist {
			ys[i] = 1
			continue
		}

		ys[i] = math.Exp(-(x - minDist) / spread)
	}

	sse := func(a, b float64) float64 {
		var sum float64
		for i, x := range xs {
			w := 1 / (1 + a*math.Pow(x, 2*b))
			diff := w - ys[i]
			sum += diff * diff
		}

		return sum
	}

	bestA, bestB := 1.0, 1.0
	bestErr := math.Inf(1)

	for ai := 0; ai < coarseGrid; ai++ {
		a := 0.05 + 5.0*float64(ai)/float64(coarseGrid-1)
		for bi := 0; bi < coarseGrid; bi++ {
			b := 0.3 + 1.7*float64(bi)/float64(coarseGrid-1)

			if err := sse(a, b); err < bestErr {
				bestErr = err
				bestA = a
				bestB = b
			}
		}
	}

	stepA := 5.0 / float64(coarseGrid-1)
	stepB := 1.7 / float64(coarseGrid-1)

	for ai := 0; ai < fineGrid; ai++ {
		a := bestA - stepA + 2*stepA*float64(ai)/float64(fineGrid-1)
		if a <= 0 {
			continue
		}

		for bi := 0; bi < fineGrid; bi++ {
			b := bestB - stepB + 2*stepB*float64(bi)/float64(fineGrid-1)
			if b <= 0 {
				continue
			}

			if err := sse(a, b); err < bestErr {
				bestErr = err
				bestA = a
				bestB = b
			}
		}
	}

	return bestA, bestB
}

// initEmbedding seeds the layout from PCA scores scaled into a fixed range,
// with a small jitter to separate coincident points.
func (r *Reducer) initEmbedding(vectors [][]float32, rng *rand.Rand) ([][]float64, error) {
	scores, err := PCA(vectors, r.cfg.Components, r.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("init embedding: %w", err)
	}

	var maxAbs float64
	for _, row := range scores {
		for _, x := range row {
			if a := math.Abs(x); a > maxAbs {
				maxAbs = a
			}
		}
	}

	scale := 1.0
	if maxAbs > 0 {
		scale = initRange / maxAbs
	}

	for _, row := range scores {
		for d := range row {
			row[d] = row[d]*scale + (rng.Float64()*2-1)*initJitter
		}
	}

	return scores, nil
}

// optimize runs negative-sampling SGD over the fuzzy graph. Strong edges are
// sampled every epoch, weak edges proportionally less often, and each
// sampled attraction pairs with a handful of random repulsions.
func (r *Reducer) optimize(embedding [][]float64, edges []edge, a, b float64, rng *rand.Rand) {
	n := len(embedding)
	epochs := r.cfg.Epochs

	var maxWeight float64
	for _, e := range edges {
		if e.weight > maxWeight {
			maxWeight = e.weight
		}
	}

	if maxWeight == 0 {
		return
	}

	// Edges too weak to fire even once over the schedule are dropped.
	active := make([]edge, 0, len(edges))
	for _, e := range edges {
		if e.weight >= maxWeight/float64(epochs) {
			active = append(active, e)
		}
	}

	epochsPerSample := make([]float64, len(active))
	epochsPerNegative := make([]float64, len(active))
	nextSample := make([]float64, len(active))
	nextNegative := make([]float64, len(active))

	for i, e := range active {
		epochsPerSample[i] = maxWeight / e.weight
		epochsPerNegative[i] = epochsPerSample[i] / negativeSampleRate
		nextSample[i] = epochsPerSample[i]
		nextNegative[i] = epochsPerNegative[i]
	}

	alpha := r.cfg.LearningRate

	for epoch := 1; epoch <= epochs; epoch++ {
		for i, e := range active {
			if nextSample[i] > float64(epoch) {
				continue
			}

			attract(embedding[e.from], embedding[e.to], a, b, alpha)

			nextSample[i] += epochsPerSample[i]

			negatives := int((float64(epoch) - nextNegative[i]) / epochsPerNegative[i])
			for p := 0; p < negatives; p++ {
				k := rng.Intn(n)
				if k == e.from || k == e.to {
					continue
				}

				repulse(embedding[e.from], embedding[k], a, b, alpha)
			}

			nextNegative[i] += float64(negatives) * epochsPerNegative[i]
		}

		alpha = r.cfg.LearningRate * (1 - float64(epoch)/float64(epochs))
	}
}

func attract(current, other []float64, a, b, alpha float64) {
	distSq := squaredDist(current, other)
	if distSq <= 0 {
		return
	}

	coeff := (-2 * a * b * math.Pow(distSq, b-1)) / (a*math.Pow(distSq, b) + 1)

	for d := range current {
		g := clip(coeff * (current[d] - other[d]))
		current[d] += g * alpha
		other[d] -= g * alpha
	}
}

func repulse(current, other []float64, a, b, alpha float64) {
	distSq := squaredDist(current, other)

	if distSq <= 0 {
		// Coincident points get pushed apart at full clip strength.
		for d := range current {
			current[d] += gradientClip * alpha
		}

		return
	}

	coeff := (2 * b) / ((0.001 + distSq) * (a*math.Pow(distSq, b) + 1))

	for d := range current {
		current[d] += clip(coeff*(current[d]-other[d])) * alpha
	}
}

func squaredDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return sum
}

func clip(v float64) float64 {
	if v > gradientClip {
		return gradientClip
	}

	if v < -gradientClip {
		return -gradientClip
	}

	return v
}
