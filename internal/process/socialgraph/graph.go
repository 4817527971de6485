// Package socialgraph assembles the follow graph over clustered creators.
//
// The graph keeps only edges between creators that received a cluster
// label. Self-follows, duplicate edges and edges touching unknown or noise
// creators are dropped and counted by reason, so the report can show how
// much of the raw edge list survived.
package socialgraph

import (
	"sort"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// DropStats counts edges removed while building the graph.
type DropStats struct {
	SelfFollows     int
	UnknownEndpoint int
	NoiseEndpoint   int
	DuplicateEdges  int
}

// Stats summarizes the built graph for the report.
type Stats struct {
	Nodes            int
	Edges            int
	SameClusterEdges int
	MeanDegree       float64
	Drops            DropStats
}

// Graph is a directed follow graph restricted to clustered creators. Nodes
// are every labeled creator, including isolated ones, so label permutations
// run over the full clustered population.
type Graph struct {
	nodes       []int64
	index       map[int64]int
	labels      []int
	edges       [][2]int
	out         [][]int
	inDegree    []int
	sameCluster int
	drops       DropStats
}

// Build filters the raw follow edges against the cluster labels. The labels
// map holds every analyzed creator; entries with the noise label mark
// creators excluded from the graph entirely.
func Build(edges []domain.FollowEdge, labels map[int64]int) *Graph {
	g := &Graph{index: make(map[int64]int, len(labels))}

	for id, label := range labels {
		if label == domain.NoiseClusterID {
			continue
		}

		g.nodes = append(g.nodes, id)
	}

	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i] < g.nodes[j] })

	g.labels = make([]int, len(g.nodes))
	g.out = make([][]int, len(g.nodes))
	g.inDegree = make([]int, len(g.nodes))

	for i, id := range g.nodes {
		g.index[id] = i
		g.labels[i] = labels[id]
	}

	seen := make(map[[2]int]struct{}, len(edges))

	for _, e := range edges {
		if e.FollowerID == e.FollowedID {
			g.drops.SelfFollows++
			continue
		}

		from, ok := g.index[e.FollowerID]
		if !ok {
			g.dropEndpoint(e.FollowerID, labels)
			continue
		}

		to, ok := g.index[e.FollowedID]
		if !ok {
			g.dropEndpoint(e.FollowedID, labels)
			continue
		}

		key := [2]int{from, to}
		if _, dup := seen[key]; dup {
			g.drops.DuplicateEdges++
			continue
		}

		seen[key] = struct{}{}
		g.edges = append(g.edges, key)
		g.out[from] = append(g.out[from], to)
		g.inDegree[to]++

		if g.labels[from] == g.labels[to] {
			g.sameCluster++
		}
	}

	return g
}

func (g *Graph) dropEndpoint(id int64, labels map[int64]int) {
	if _, analyzed := labels[id]; analyzed {
		g.drops.NoiseEndpoint++
		return
	}

	g.drops.UnknownEndpoint++
}

// Nodes returns the creator ids in the graph in ascending order.
func (g *Graph) Nodes() []int64 {
	return g.nodes
}

// NodeCount returns the number of clustered creators, isolated ones
// included.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of surviving directed edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// SameClusterCount returns how many surviving edges connect two creators in
// the same cluster.
func (g *Graph) SameClusterCount() int {
	return g.sameCluster
}

// ClusterPairEdges counts the surviving directed edges per (from cluster,
// to cluster) label pair. Same-cluster edges sit on the diagonal.
func (g *Graph) ClusterPairEdges() map[[2]int]int {
	pairs := make(map[[2]int]int)
	for _, e := range g.edges {
		pairs[[2]int{g.labels[e[0]], g.labels[e[1]]}]++
	}

	return pairs
}

// OutNeighbors returns the creators the given creator follows inside the
// graph, ascending by id. Creators outside the graph have no neighbors.
func (g *Graph) OutNeighbors(id int64) []int64 {
	from, ok := g.index[id]
	if !ok {
		return nil
	}

	neighbors := make([]int64, 0, len(g.out[from]))
	for _, to := range g.out[from] {
		neighbors = append(neighbors, g.nodes[to])
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

	return neighbors
}

// Degree returns the out and in degree of the given creator, zero for
// creators outside the graph.
func (g *Graph) Degree(id int64) (out, in int) {
	i, ok := g.index[id]
	if !ok {
		return 0, 0
	}

	return len(g.out[i]), g.inDegree[i]
}

// IndexedEdges returns the edges as index pairs into Nodes. The slice is
// shared, not copied.
func (g *Graph) IndexedEdges() [][2]int {
	return g.edges
}

// LabelVector returns the cluster label per node, aligned with Nodes. The
// slice is shared, not copied.
func (g *Graph) LabelVector() []int {
	return g.labels
}

// Drops returns the per-reason counts of removed edges.
func (g *Graph) Drops() DropStats {
	return g.drops
}

// Stats summarizes the graph. MeanDegree is directed edges per node over
// the whole clustered population.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:            len(g.nodes),
		Edges:            len(g.edges),
		SameClusterEdges: g.sameCluster,
		Drops:            g.drops,
	}

	if len(g.nodes) > 0 {
		s.MeanDegree = float64(len(g.edges)) / float64(len(g.nodes))
	}

	return s
}
