package cluster

import (
	"math"
	"sort"
)

// pointDeparture records the density level at which a point left a
// condensed cluster. Lambda is the inverse merge distance, so denser points
// carry larger values.
type pointDeparture struct {
	point  int
	lambda float64
}

// childJoin records a true split of a condensed cluster into a child that
// itself meets the minimum cluster size.
type childJoin struct {
	cluster int
	lambda  float64
	size    int
}

type condensedCluster struct {
	parent      int
	birthLambda float64
	size        int
	points      []pointDeparture
	children    []childJoin
}

// condensedTree is the hierarchy with all sub-minimum branches folded into
// point departures. Cluster 0 is the root and is never selectable, so a
// clustering where the root never truly splits comes out all noise.
type condensedTree struct {
	clusters []condensedCluster
}

type walkFrame struct {
	node    int
	cluster int
}

func condense(merges []merge, n, minClusterSize int) *condensedTree {
	tree := &condensedTree{
		clusters: []condensedCluster{{parent: -1, birthLambda: 0, size: n}},
	}

	if len(merges) == 0 {
		return tree
	}

	nodeSize := func(id int) int {
		if id < n {
			return 1
		}

		return merges[id-n].size
	}

	root := n + len(merges) - 1
	stack := []walkFrame{{node: root, cluster: 0}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.node < n {
			continue
		}

		m := merges[frame.node-n]

		lambda := math.Inf(1)
		if m.dist > 0 {
			lambda = 1 / m.dist
		}

		leftSize := nodeSize(m.left)
		rightSize := nodeSize(m.right)

		switch {
		case leftSize >= minClusterSize && rightSize >= minClusterSize:
			leftID := tree.addCluster(frame.cluster, lambda, leftSize)
			rightID := tree.addCluster(frame.cluster, lambda, rightSize)

			cur := &tree.clusters[frame.cluster]
			cur.children = append(cur.children,
				childJoin{cluster: leftID, lambda: lambda, size: leftSize},
				childJoin{cluster: rightID, lambda: lambda, size: rightSize},
			)

			stack = append(stack, walkFrame{node: m.left, cluster: leftID}, walkFrame{node: m.right, cluster: rightID})

		case leftSize >= minClusterSize:
			tree.dropLeaves(merges, n, m.right, frame.cluster, lambda)
			stack = append(stack, walkFrame{node: m.left, cluster: frame.cluster})

		case rightSize >= minClusterSize:
			tree.dropLeaves(merges, n, m.left, frame.cluster, lambda)
			stack = append(stack, walkFrame{node: m.right, cluster: frame.cluster})

		default:
			// The cluster dissolves: neither side is big enough to carry it on.
			tree.dropLeaves(merges, n, m.left, frame.cluster, lambda)
			tree.dropLeaves(merges, n, m.right, frame.cluster, lambda)
		}
	}

	return tree
}

func (t *condensedTree) addCluster(parent int, birthLambda float64, size int) int {
	t.clusters = append(t.clusters, condensedCluster{
		parent:      parent,
		birthLambda: birthLambda,
		size:        size,
	})

	return len(t.clusters) - 1
}

// dropLeaves records every leaf under the dendrogram node as departing the
// given condensed cluster at the given density level.
func (t *condensedTree) dropLeaves(merges []merge, n, node, cluster int, lambda float64) {
	stack := []int{node}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id < n {
			t.clusters[cluster].points = append(t.clusters[cluster].points, pointDeparture{point: id, lambda: lambda})
			continue
		}

		m := merges[id-n]
		stack = append(stack, m.left, m.right)
	}
}

// stability sums, over everything that left the cluster, how far past the
// cluster's birth level it persisted.
func (t *condensedTree) stability(id int) float64 {
	c := t.clusters[id]

	var s float64
	for _, p := range c.points {
		s += p.lambda - c.birthLambda
	}

	for _, ch := range c.children {
		s += (ch.lambda - c.birthLambda) * float64(ch.size)
	}

	return s
}

// selectClusters runs the excess-of-mass rule bottom-up: a cluster is kept
// when its own stability beats the combined stability of its selected
// descendants. The root is excluded, so the result has zero or at least two
// clusters.
func selectClusters(tree *condensedTree) []bool {
	m := len(tree.clusters)

	selected := make([]bool, m)
	subtree := make([]float64, m)

	for id := m - 1; id >= 1; id-- {
		c := tree.clusters[id]
		own := tree.stability(id)

		if len(c.children) == 0 {
			selected[id] = true
			subtree[id] = own
			continue
		}

		var childSum float64
		for _, ch := range c.children {
			childSum += subtree[ch.cluster]
		}

		if own >= childSum {
			selected[id] = true
			subtree[id] = own
			deselectDescendants(tree, selected, id)
			continue
		}

		subtree[id] = childSum
	}

	return selected
}

func deselectDescendants(tree *condensedTree, selected []bool, id int) {
	stack := make([]int, 0, len(tree.clusters[id].children))
	for _, ch := range tree.clusters[id].children {
		stack = append(stack, ch.cluster)
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		selected[cur] = false

		for _, ch := range tree.clusters[cur].children {
			stack = append(stack, ch.cluster)
		}
	}
}

// extract turns the condensed tree and selection into flat labels with
// per-point membership probabilities and per-cluster persistence.
func extract(tree *condensedTree, n int) *Result {
	selected := selectClusters(tree)

	result := &Result{
		Labels:        make([]int, n),
		Probabilities: make([]float64, n),
		Clusters:      nil,
	}

	for i := range result.Labels {
		result.Labels[i] = NoiseLabel
	}

	type selectedCluster struct {
		id        int
		death     float64
		members   []pointDeparture
		minMember int
	}

	var picks []selectedCluster

	for id, ok := range selected {
		if !ok {
			continue
		}

		members := collectDepartures(tree, id)
		if len(members) == 0 {
			continue
		}

		minMember := members[0].point
		for _, p := range members[1:] {
			if p.point < minMember {
				minMember = p.point
			}
		}

		picks = append(picks, selectedCluster{
			id:        id,
			death:     clusterDeath(tree, id),
			members:   members,
			minMember: minMember,
		})
	}

	sort.Slice(picks, func(i, j int) bool {
		return picks[i].minMember < picks[j].minMember
	})

	for label, pick := range picks {
		birth := tree.clusters[pick.id].birthLambda

		var persistenceSum float64

		for _, p := range pick.members {
			result.Labels[p.point] = label
			result.Probabilities[p.point] = membershipProbability(p.lambda, pick.death)

			persistenceSum += persistenceShare(p.lambda, birth, pick.death)
		}

		result.Clusters = append(result.Clusters, ClusterInfo{
			ID:          label,
			Size:        len(pick.members),
			Persistence: persistenceSum / float64(len(pick.members)),
		})
	}

	return result
}

// collectDepartures gathers every point departure in the cluster's subtree.
func collectDepartures(tree *condensedTree, id int) []pointDeparture {
	var out []pointDeparture

	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out = append(out, tree.clusters[cur].points...)

		for _, ch := range tree.clusters[cur].children {
			stack = append(stack, ch.cluster)
		}
	}

	return out
}

// clusterDeath is the largest density level recorded directly on the
// cluster: its last point departure or its true split, whichever is later.
func clusterDeath(tree *condensedTree, id int) float64 {
	c := tree.clusters[id]

	var death float64
	for _, p := range c.points {
		if p.lambda > death {
			death = p.lambda
		}
	}

	for _, ch := range c.children {
		if ch.lambda > death {
			death = ch.lambda
		}
	}

	return death
}

func membershipProbability(lambda, death float64) float64 {
	if death <= 0 {
		return 1
	}

	if math.IsInf(death, 1) {
		if math.IsInf(lambda, 1) {
			return 1
		}

		return 0
	}

	if lambda > death {
		lambda = death
	}

	return lambda / death
}

func persistenceShare(lambda, birth, death float64) float64 {
	den := death - birth
	if den <= 0 {
		return 1
	}

	r := (lambda - birth) / den
	if math.IsNaN(r) {
		return 1
	}

	if r > 1 {
		r = 1
	}

	if r < 0 {
		r = 0
	}

	return r
}
