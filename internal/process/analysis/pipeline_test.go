package analysis

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/domain"
	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/process/cluster"
	"github.com/molchalih/inst2txt/internal/process/homophily"
	"github.com/molchalih/inst2txt/internal/process/profile"
	"github.com/molchalih/inst2txt/internal/process/reduce"
)

// fixtureInputs builds two aesthetic poles of 14 creators each. Pole one
// holds ids 1..14, pole two 101..114, and follows chain strictly within
// each pole. Creator 500 has no embedded reels. The raw edge list carries
// one self-follow, one duplicate and one edge to an untracked creator.
func fixtureInputs(t *testing.T) Inputs {
	t.Helper()

	rng := rand.New(rand.NewSource(5)) //nolint:gosec // test fixture

	embeddings := make(map[int64][][]float32)

	addPole := func(baseID int64, axis int) {
		for i := int64(0); i < 14; i++ {
			id := baseID + i
			reels := int(i%2) + 2

			for r := 0; r < reels; r++ {
				v := make([]float32, 8)
				for d := range v {
					v[d] = float32(rng.NormFloat64()) * 0.05
				}

				v[axis] += 10

				embeddings[id] = append(embeddings[id], v)
			}
		}
	}

	addPole(1, 0)
	addPole(101, 1)

	embeddings[500] = [][]float32{}

	var edges []domain.FollowEdge

	for _, base := range []int64{1, 101} {
		for i := int64(0); i < 13; i++ {
			edges = append(edges, domain.FollowEdge{FollowerID: base + i, FollowedID: base + i + 1})
		}
	}

	edges = append(edges,
		domain.FollowEdge{FollowerID: 5, FollowedID: 5},
		domain.FollowEdge{FollowerID: 1, FollowedID: 2},
		domain.FollowEdge{FollowerID: 999, FollowedID: 1},
	)

	return Inputs{
		EpochID:    uuid.New(),
		Embeddings: embeddings,
		Edges:      edges,
	}
}

func fixtureConfig() Config {
	return Config{
		Seed:        42,
		Reduce:      reduce.Config{Neighbors: 5, Epochs: 80},
		Cluster:     cluster.Config{MinClusterSize: 8, MinSamples: 3},
		Permutation: homophily.PermutationConfig{Trials: 300, Workers: 2},
	}
}

func TestPipelineRunFullEpoch(t *testing.T) {
	p := NewPipeline(fixtureConfig(), zerolog.Nop())
	in := fixtureInputs(t)

	out, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if len(out.Creators) != 28 {
		t.Fatalf("creators = %d, want 28", len(out.Creators))
	}

	for i := 1; i < len(out.Creators); i++ {
		if out.Creators[i-1].CreatorID >= out.Creators[i].CreatorID {
			t.Fatalf("creator records not ordered by id at %d", i)
		}
	}

	if !reflect.DeepEqual(out.Skipped, []int64{500}) {
		t.Errorf("skipped = %v, want [500]", out.Skipped)
	}

	if len(out.Clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(out.Clusters))
	}

	if got := out.NoiseCount(); got != 0 {
		t.Errorf("noise = %d, want 0", got)
	}

	// The poles must separate: ids 1..14 in one cluster, 101..114 in the
	// other.
	for _, c := range out.Creators {
		want := 0
		if c.CreatorID > 100 {
			want = 1
		}

		if c.ClusterID != want {
			t.Errorf("creator %d in cluster %d, want %d", c.CreatorID, c.ClusterID, want)
		}

		if c.Confidence <= 0 || c.Confidence > 1 {
			t.Errorf("creator %d confidence = %v, want in (0, 1]", c.CreatorID, c.Confidence)
		}

		if len(c.Coords) != 2 {
			t.Errorf("creator %d has %d coords, want 2", c.CreatorID, len(c.Coords))
		}

		if c.SampleSize < 2 || c.SampleSize > 3 {
			t.Errorf("creator %d sample size = %d, want 2 or 3", c.CreatorID, c.SampleSize)
		}
	}

	if out.Graph.Edges != 26 {
		t.Errorf("graph edges = %d, want 26", out.Graph.Edges)
	}

	if out.Graph.SameClusterEdges != 26 {
		t.Errorf("same-cluster edges = %d, want 26", out.Graph.SameClusterEdges)
	}

	drops := out.Graph.Drops
	if drops.SelfFollows != 1 || drops.DuplicateEdges != 1 || drops.UnknownEndpoint != 1 {
		t.Errorf("drops = %+v, want one self-follow, one duplicate, one unknown", drops)
	}

	assertHomophily(t, out)

	wantStages := []string{stageProfile, stageReduce, stageCluster, stageGraph, stageHypotheses}

	if len(out.Timings) != len(wantStages) {
		t.Fatalf("timings = %d entries, want %d", len(out.Timings), len(wantStages))
	}

	for i, timing := range out.Timings {
		if timing.Stage != wantStages[i] {
			t.Errorf("timing[%d].Stage = %q, want %q", i, timing.Stage, wantStages[i])
		}
	}
}

func assertHomophily(t *testing.T, out *Output) {
	t.Helper()

	if len(out.Homophily) != 3 {
		t.Fatalf("homophily results = %d, want 3", len(out.Homophily))
	}

	wantNames := []string{
		domain.HypothesisSameClusterEdges,
		domain.HypothesisCentroidDistance,
		domain.HypothesisBridgeConfidence,
	}

	for i, h := range out.Homophily {
		if h.Hypothesis != wantNames[i] {
			t.Errorf("homophily[%d].Hypothesis = %q, want %q", i, h.Hypothesis, wantNames[i])
		}

		if h.PValue <= 0 || h.PValue > 1 {
			t.Errorf("%s p-value = %v, want in (0, 1]", h.Hypothesis, h.PValue)
		}
	}

	h1 := out.Homophily[0]

	if h1.Statistic != 1 {
		t.Errorf("h1 observed rate = %v, want 1", h1.Statistic)
	}

	if h1.PValue >= 0.05 {
		t.Errorf("h1 p-value = %v, want < 0.05 for perfectly assortative follows", h1.PValue)
	}

	if h1.NullMean < 0.2 || h1.NullMean > 0.8 {
		t.Errorf("h1 null mean = %v, want around 0.5", h1.NullMean)
	}

	if h1.SampleSize != 26 {
		t.Errorf("h1 sample size = %d, want 26", h1.SampleSize)
	}

	for _, h := range out.Homophily[1:] {
		if h.SampleSize != 28 {
			t.Errorf("%s sample size = %d, want 28", h.Hypothesis, h.SampleSize)
		}
	}
}

func TestPipelineRunDeterministic(t *testing.T) {
	p := NewPipeline(fixtureConfig(), zerolog.Nop())
	in := fixtureInputs(t)

	first, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	second, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if !reflect.DeepEqual(first.Creators, second.Creators) {
		t.Errorf("creator records diverged between reruns")
	}

	if !reflect.DeepEqual(first.Homophily, second.Homophily) {
		t.Errorf("homophily results diverged between reruns: %+v != %+v", first.Homophily, second.Homophily)
	}
}

func TestPipelineRunWithScan(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Scan = &cluster.ScanConfig{
		MinClusterSizes: []int{8},
		MinSamples:      []int{3},
		Workers:         1,
	}

	p := NewPipeline(cfg, zerolog.Nop())

	out, err := p.Run(context.Background(), fixtureInputs(t))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if len(out.ScanCandidates) != 1 {
		t.Fatalf("scan candidates = %d, want 1", len(out.ScanCandidates))
	}

	if !out.ScanCandidates[0].Valid {
		t.Errorf("scan candidate not valid: %+v", out.ScanCandidates[0])
	}

	if out.ClusterConfig.MinClusterSize != 8 || out.ClusterConfig.MinSamples != 3 {
		t.Errorf("effective config = %+v, want the scanned parameters", out.ClusterConfig)
	}

	if len(out.Clusters) != 2 {
		t.Errorf("clusters = %d, want 2", len(out.Clusters))
	}
}

func TestPipelineRunInsufficientData(t *testing.T) {
	p := NewPipeline(fixtureConfig(), zerolog.Nop())

	in := Inputs{
		EpochID: uuid.New(),
		Embeddings: map[int64][][]float32{
			1: {{1, 0}},
			2: {{0, 1}},
			3: {{1, 1}},
		},
	}

	_, err := p.Run(context.Background(), in)
	if !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("Run() error = %v, want %v", err, apperrors.ErrInsufficientData)
	}
}

func TestPipelineRunCancelled(t *testing.T) {
	p := NewPipeline(fixtureConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, fixtureInputs(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
}

func TestPolarProfilesClusterExactly(t *testing.T) {
	// Two creators per pole, two reels each. The aggregated profiles must
	// split into exactly the two pole clusters with nothing labeled noise.
	set, err := profile.Build(map[int64][][]float32{
		1: {{0.99, 0.01, 0, 0.01}, {0.98, 0.02, 0.01, 0}},
		2: {{0.97, 0, 0.02, 0.01}, {1, 0.01, 0, 0}},
		3: {{0.01, 0.99, 0, 0}, {0.02, 0.98, 0.01, 0.01}},
		4: {{0, 0.97, 0.02, 0}, {0.01, 1, 0, 0.01}},
	})
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}

	points := make([][]float64, set.Len())
	for i, vec := range set.Vectors {
		points[i] = make([]float64, len(vec))
		for j, v := range vec {
			points[i][j] = float64(v)
		}
	}

	c, err := cluster.New(cluster.Config{MinClusterSize: 2, MinSamples: 1})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	result, err := c.Fit(points)
	if err != nil {
		t.Fatalf("Fit() error = %v, want nil", err)
	}

	if len(result.Clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(result.Clusters))
	}

	if got := result.NoiseCount(); got != 0 {
		t.Errorf("noise = %d, want 0", got)
	}

	if result.Labels[0] != result.Labels[1] || result.Labels[2] != result.Labels[3] {
		t.Errorf("pair labels split: %v", result.Labels)
	}

	if result.Labels[0] == result.Labels[2] {
		t.Errorf("poles share a cluster: %v", result.Labels)
	}
}
