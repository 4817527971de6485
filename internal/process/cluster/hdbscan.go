// Package cluster groups creators in the reduced space by density.
//
// The clusterer follows the hierarchical density approach: mutual
// reachability distances smooth the metric by each point's local density,
// a minimum spanning tree over those distances yields a single-linkage
// hierarchy, the hierarchy condenses by minimum cluster size and the final
// flat clustering maximizes stability across density levels. Points outside
// every selected cluster are noise. The algorithm is fully deterministic: it
// draws no random numbers and breaks all distance ties by point index.
package cluster

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/core/vecmath"
)

// NoiseLabel marks points assigned to no cluster.
const NoiseLabel = -1

// Supported metrics over the reduced coordinates.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

const (
	defaultMinClusterSize = 8
	defaultMinSamples     = 4
)

// Config controls the clusterer.
type Config struct {
	// MinClusterSize is the smallest group that counts as a cluster.
	MinClusterSize int

	// MinSamples sets how conservative the density estimate is. Larger
	// values declare more points noise.
	MinSamples int

	// Metric is the distance over the reduced coordinates.
	Metric string
}

func (c Config) withDefaults() Config {
	if c.MinClusterSize == 0 {
		c.MinClusterSize = defaultMinClusterSize
	}

	if c.MinSamples == 0 {
		c.MinSamples = defaultMinSamples
	}

	if c.Metric == "" {
		c.Metric = MetricEuclidean
	}

	return c
}

func (c Config) validate() error {
	if c.MinClusterSize < 2 {
		return fmt.Errorf("min cluster size must be >= 2, got %d: %w", c.MinClusterSize, apperrors.ErrInvalidConfig)
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("min samples must be >= 1, got %d: %w", c.MinSamples, apperrors.ErrInvalidConfig)
	}

	if c.Metric != MetricEuclidean && c.Metric != MetricCosine {
		return fmt.Errorf("unknown metric %q: %w", c.Metric, apperrors.ErrInvalidConfig)
	}

	return nil
}

// ClusterInfo describes one selected cluster.
type ClusterInfo struct {
	// ID is the dense label, 0-based, ordered by the smallest member index.
	ID int

	// Size is the number of member points.
	Size int

	// Persistence is the normalized stability in [0, 1]. Values near 1 mean
	// the cluster survives across a wide range of density levels.
	Persistence float64
}

// Result is a flat clustering. Labels and Probabilities are indexed by input
// row. Noise points carry NoiseLabel and probability 0.
type Result struct {
	Labels        []int
	Probabilities []float64
	Clusters      []ClusterInfo
}

// NoiseCount returns how many points were left unclustered.
func (r *Result) NoiseCount() int {
	var n int
	for _, l := range r.Labels {
		if l == NoiseLabel {
			n++
		}
	}

	return n
}

// Clusterer computes density clusterings over low-dimensional points.
type Clusterer struct {
	cfg Config
}

// New validates the config, fills defaults and returns a ready clusterer.
func New(cfg Config) (*Clusterer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Clusterer{cfg: cfg}, nil
}

// Config returns the effective configuration after defaulting.
func (c *Clusterer) Config() Config {
	return c.cfg
}

// Fit clusters the points. It needs at least 2*MinClusterSize points and
// strictly more points than MinSamples. An outcome where every point is
// noise is valid and returns an empty cluster list, not an error.
//
// Memory is quadratic in the point count. That is fine for the intended
// scale of a few thousand creators.
func (c *Clusterer) Fit(points [][]float64) (*Result, error) {
	n := len(points)
	if n < 2*c.cfg.MinClusterSize {
		return nil, fmt.Errorf("clustering with min cluster size %d requires at least %d points, got %d: %w",
			c.cfg.MinClusterSize, 2*c.cfg.MinClusterSize, n, apperrors.ErrInsufficientData)
	}

	if n <= c.cfg.MinSamples {
		return nil, fmt.Errorf("clustering with min samples %d requires at least %d points, got %d: %w",
			c.cfg.MinSamples, c.cfg.MinSamples+1, n, apperrors.ErrInsufficientData)
	}

	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, expected %d: %w", i, len(p), dim, apperrors.ErrDimensionMismatch)
		}
	}

	dist := c.pairwiseDistances(points)
	core := coreDistances(dist, c.cfg.MinSamples)
	edges := spanningTree(dist, core)
	merges := singleLinkage(edges, n)
	tree := condense(merges, n, c.cfg.MinClusterSize)

	return extract(tree, n), nil
}

func (c *Clusterer) pairwiseDistances(points [][]float64) [][]float64 {
	n := len(points)

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var d float64
			if c.cfg.Metric == MetricCosine {
				d = vecmath.CosineDistance64(points[i], points[j])
			} else {
				d = vecmath.Euclidean(points[i], points[j])
			}

			dist[i][j] = d
			dist[j][i] = d
		}
	}

	return dist
}

// coreDistances returns, per point, the distance to its minSamples-th
// nearest other point.
func coreDistances(dist [][]float64, minSamples int) []float64 {
	n := len(dist)
	core := make([]float64, n)
	scratch := make([]float64, 0, n-1)

	for i := 0; i < n; i++ {
		scratch = scratch[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}

			scratch = append(scratch, dist[i][j])
		}

		sort.Float64s(scratch)
		core[i] = scratch[minSamples-1]
	}

	return core
}

type treeEdge struct {
	a, b   int
	weight float64
}

// spanningTree builds the minimum spanning tree over mutual reachability
// distances max(core(a), core(b), d(a, b)) using Prim's algorithm with
// index tie-breaks.
func spanningTree(dist [][]float64, core []float64) []treeEdge {
	n := len(dist)

	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)

	for i := range bestDist {
		bestDist[i] = math.Inf(1)
		bestFrom[i] = -1
	}

	edges := make([]treeEdge, 0, n-1)
	current := 0
	inTree[0] = true

	for len(edges) < n-1 {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			mr := dist[current][j]
			if core[current] > mr {
				mr = core[current]
			}

			if core[j] > mr {
				mr = core[j]
			}

			if mr < bestDist[j] {
				bestDist[j] = mr
				bestFrom[j] = current
			}
		}

		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			if next == -1 || bestDist[j] < bestDist[next] {
				next = j
			}
		}

		edges = append(edges, treeEdge{a: bestFrom[next], b: next, weight: bestDist[next]})
		inTree[next] = true
		current = next
	}

	return edges
}

// merge is one internal node of the single-linkage dendrogram. Child ids
// below n are leaf points, ids at or above n index merges[id-n].
type merge struct {
	left, right int
	dist        float64
	size        int
}

func singleLinkage(edges []treeEdge, n int) []merge {
	sorted := make([]treeEdge, len(edges))
	copy(sorted, edges)

	for i := range sorted {
		if sorted[i].a > sorted[i].b {
			sorted[i].a, sorted[i].b = sorted[i].b, sorted[i].a
		}
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].weight != sorted[j].weight {
			return sorted[i].weight < sorted[j].weight
		}

		if sorted[i].a != sorted[j].a {
			return sorted[i].a < sorted[j].a
		}

		return sorted[i].b < sorted[j].b
	})

	uf := newUnionFind(n)
	merges := make([]merge, 0, len(sorted))

	for _, e := range sorted {
		ra := uf.find(e.a)
		rb := uf.find(e.b)

		merges = append(merges, merge{
			left:  uf.node[ra],
			right: uf.node[rb],
			dist:  e.weight,
			size:  uf.size[ra] + uf.size[rb],
		})

		uf.union(ra, rb, n+len(merges)-1)
	}

	return merges
}

type unionFind struct {
	parent []int
	size   []int
	node   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		node:   make([]int, n),
	}

	for i := 0; i < n; i++ {
		uf.parent[i] = i
		uf.size[i] = 1
		uf.node[i] = i
	}

	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}

	return x
}

func (u *unionFind) union(ra, rb, node int) {
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}

	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	u.node[ra] = node
}
