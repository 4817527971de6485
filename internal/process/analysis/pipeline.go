// Package analysis drives one full epoch: creator profiles from reel
// embeddings, the reduced layout, density clusters with membership
// confidence, the follow graph and the three homophily hypothesis tests.
//
// The pipeline itself is pure computation over in-memory inputs. The
// Service around it loads inputs from storage, records the epoch and
// persists the results.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/domain"
	"github.com/molchalih/inst2txt/internal/platform/observability"
	"github.com/molchalih/inst2txt/internal/process/cluster"
	"github.com/molchalih/inst2txt/internal/process/homophily"
	"github.com/molchalih/inst2txt/internal/process/profile"
	"github.com/molchalih/inst2txt/internal/process/reduce"
	"github.com/molchalih/inst2txt/internal/process/socialgraph"
)

const (
	stageProfile    = "profile"
	stageReduce     = "reduce"
	stageCluster    = "cluster"
	stageGraph      = "graph"
	stageHypotheses = "hypotheses"
)

const (
	dropReasonSelfFollow = "self_follow"
	dropReasonUnknown    = "unknown_endpoint"
	dropReasonNoise      = "noise_endpoint"
	dropReasonDuplicate  = "duplicate"
)

// Config assembles the stage configurations. One master seed drives the
// layout initialization, its negative sampling and the permutation streams,
// so an epoch is reproducible from its stored seed alone.
type Config struct {
	Seed        int64
	Reduce      reduce.Config
	Cluster     cluster.Config
	Permutation homophily.PermutationConfig

	// Scan, when set, sweeps the clusterer grid and uses the winning
	// parameters instead of the fixed Cluster config.
	Scan *cluster.ScanConfig
}

// Inputs is everything an epoch computes from.
type Inputs struct {
	// EpochID correlates every log line of the run.
	EpochID uuid.UUID

	// Embeddings holds the embedded reel vectors per creator id.
	Embeddings map[int64][][]float32

	// Edges is the raw follow edge list.
	Edges []domain.FollowEdge
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Output is the complete result of one epoch.
type Output struct {
	// Epoch is the completed epoch row. The pipeline leaves it empty; the
	// service fills it after persisting the run.
	Epoch domain.AnalysisEpoch

	// Creators holds one record per profiled creator, ordered by id.
	Creators []domain.CreatorRecord

	// Skipped lists creators left out for having no embedded reels.
	Skipped []int64

	// Clusters describes the selected clusters.
	Clusters []cluster.ClusterInfo

	// ClusterConfig is the effective clusterer config, after the scan when
	// one ran.
	ClusterConfig cluster.Config

	// ScanCandidates holds the full sweep grid, nil when no scan ran.
	ScanCandidates []cluster.Candidate

	// Graph summarizes the follow graph the tests ran on.
	Graph socialgraph.Stats

	// Homophily holds the three hypothesis outcomes.
	Homophily []domain.HomophilyResult

	// Timings lists the stage durations in execution order.
	Timings []StageTiming
}

// NoiseCount returns how many profiled creators ended up as noise.
func (o *Output) NoiseCount() int {
	var n int
	for _, c := range o.Creators {
		if c.ClusterID == domain.NoiseClusterID {
			n++
		}
	}

	return n
}

// Pipeline computes epochs. It is safe for sequential reuse; each Run is
// independent.
type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
}

func NewPipeline(cfg Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes the stage chain. Each stage completes before the next
// starts, and any stage error aborts the epoch. The context is checked at
// every stage boundary.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Output, error) {
	logger := p.logger.With().Str("epoch_id", in.EpochID.String()).Logger()

	out := &Output{}

	profiles, err := p.runProfileStage(ctx, in, out, logger)
	if err != nil {
		return nil, err
	}

	coords, err := p.runReduceStage(ctx, profiles, out, logger)
	if err != nil {
		return nil, err
	}

	clusters, err := p.runClusterStage(ctx, coords, out, logger)
	if err != nil {
		return nil, err
	}

	p.assembleRecords(profiles, coords, clusters, out)

	graph, err := p.runGraphStage(ctx, in.Edges, profiles, clusters, out, logger)
	if err != nil {
		return nil, err
	}

	if err := p.runHypothesesStage(ctx, coords, clusters, graph, out, logger); err != nil {
		return nil, err
	}

	return out, nil
}

func (p *Pipeline) runProfileStage(ctx context.Context, in Inputs, out *Output, logger zerolog.Logger) (*profile.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	profiles, err := profile.Build(in.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("profile stage: %w", err)
	}

	out.Skipped = profiles.Skipped

	p.observeStage(stageProfile, start, out)

	logger.Info().
		Int("creators", profiles.Len()).
		Int("skipped", len(profiles.Skipped)).
		Int("dimensions", profiles.Dim).
		Msg("Creator profiles built")

	return profiles, nil
}

func (p *Pipeline) runReduceStage(ctx context.Context, profiles *profile.Set, out *Output, logger zerolog.Logger) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	cfg := p.cfg.Reduce
	cfg.Seed = p.cfg.Seed

	reducer, err := reduce.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("reduce stage: %w", err)
	}

	coords, err := reducer.Fit(profiles.Vectors)
	if err != nil {
		return nil, fmt.Errorf("reduce stage: %w", err)
	}

	reduce.MinMaxScale(coords)

	p.observeStage(stageReduce, start, out)

	logger.Info().
		Int("points", len(coords)).
		Int("components", reducer.Config().Components).
		Msg("Reduced layout computed")

	return coords, nil
}

func (p *Pipeline) runClusterStage(ctx context.Context, coords [][]float64, out *Output, logger zerolog.Logger) (*cluster.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	var result *cluster.Result

	if p.cfg.Scan != nil {
		scan, err := cluster.Scan(ctx, coords, *p.cfg.Scan)
		if err != nil {
			return nil, fmt.Errorf("cluster scan stage: %w", err)
		}

		result = scan.BestResult
		out.ClusterConfig = scan.Best
		out.ScanCandidates = scan.Candidates
	} else {
		clusterer, err := cluster.New(p.cfg.Cluster)
		if err != nil {
			return nil, fmt.Errorf("cluster stage: %w", err)
		}

		result, err = clusterer.Fit(coords)
		if err != nil {
			return nil, fmt.Errorf("cluster stage: %w", err)
		}

		out.ClusterConfig = clusterer.Config()
	}

	out.Clusters = result.Clusters

	p.observeStage(stageCluster, start, out)

	logger.Info().
		Int("clusters", len(result.Clusters)).
		Int("noise", result.NoiseCount()).
		Int("min_cluster_size", out.ClusterConfig.MinClusterSize).
		Int("min_samples", out.ClusterConfig.MinSamples).
		Msg("Clustering finished")

	return result, nil
}

func (p *Pipeline) assembleRecords(profiles *profile.Set, coords [][]float64, clusters *cluster.Result, out *Output) {
	out.Creators = make([]domain.CreatorRecord, profiles.Len())

	for i, id := range profiles.IDs {
		out.Creators[i] = domain.CreatorRecord{
			CreatorID:  id,
			ClusterID:  clusters.Labels[i],
			Confidence: clusters.Probabilities[i],
			Coords:     coords[i],
			Profile:    profiles.Vectors[i],
			SampleSize: profiles.Samples[i],
		}
	}
}

func (p *Pipeline) runGraphStage(ctx context.Context, edges []domain.FollowEdge, profiles *profile.Set, clusters *cluster.Result, out *Output, logger zerolog.Logger) (*socialgraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	labels := make(map[int64]int, profiles.Len())
	for i, id := range profiles.IDs {
		labels[id] = clusters.Labels[i]
	}

	graph := socialgraph.Build(edges, labels)

	drops := graph.Drops()
	observability.EdgesDropped.WithLabelValues(dropReasonSelfFollow).Add(float64(drops.SelfFollows))
	observability.EdgesDropped.WithLabelValues(dropReasonUnknown).Add(float64(drops.UnknownEndpoint))
	observability.EdgesDropped.WithLabelValues(dropReasonNoise).Add(float64(drops.NoiseEndpoint))
	observability.EdgesDropped.WithLabelValues(dropReasonDuplicate).Add(float64(drops.DuplicateEdges))

	out.Graph = graph.Stats()

	p.observeStage(stageGraph, start, out)

	logger.Info().
		Int("nodes", graph.NodeCount()).
		Int("edges", graph.EdgeCount()).
		Int("same_cluster", graph.SameClusterCount()).
		Int("dropped_self", drops.SelfFollows).
		Int("dropped_unknown", drops.UnknownEndpoint).
		Int("dropped_noise", drops.NoiseEndpoint).
		Int("dropped_duplicate", drops.DuplicateEdges).
		Msg("Follow graph built")

	return graph, nil
}

func (p *Pipeline) runHypothesesStage(ctx context.Context, coords [][]float64, clusters *cluster.Result, graph *socialgraph.Graph, out *Output, logger zerolog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	permCfg := p.cfg.Permutation
	permCfg.Seed = p.cfg.Seed

	edgeTest, err := homophily.SameClusterEdgeTest(ctx, graph, permCfg)
	if err != nil {
		return fmt.Errorf("same-cluster edge test: %w", err)
	}

	observability.PermutationTrials.Add(float64(edgeTest.Trials))

	metric := out.ClusterConfig.Metric

	centroidTest, err := homophily.CentroidDistanceTest(coords, clusters.Labels, clusters.Probabilities, metric)
	if err != nil {
		return fmt.Errorf("centroid distance test: %w", err)
	}

	bridgeTest, err := homophily.BridgeTest(coords, clusters.Labels, clusters.Probabilities, metric)
	if err != nil {
		return fmt.Errorf("bridge test: %w", err)
	}

	out.Homophily = []domain.HomophilyResult{
		{
			Hypothesis: domain.HypothesisSameClusterEdges,
			Statistic:  edgeTest.ObservedRate,
			PValue:     edgeTest.PValue,
			NullMean:   edgeTest.NullMean,
			SampleSize: edgeTest.Edges,
		},
		{
			Hypothesis: domain.HypothesisCentroidDistance,
			Statistic:  centroidTest.Rho,
			PValue:     centroidTest.PValue,
			SampleSize: centroidTest.N,
		},
		{
			Hypothesis: domain.HypothesisBridgeConfidence,
			Statistic:  bridgeTest.Rho,
			PValue:     bridgeTest.PValue,
			SampleSize: bridgeTest.N,
		},
	}

	p.observeStage(stageHypotheses, start, out)

	logger.Info().
		Float64("h1_observed", edgeTest.ObservedRate).
		Float64("h1_null_mean", edgeTest.NullMean).
		Float64("h1_p", edgeTest.PValue).
		Float64("h2_rho", centroidTest.Rho).
		Float64("h2_p", centroidTest.PValue).
		Float64("h3_rho", bridgeTest.Rho).
		Float64("h3_p", bridgeTest.PValue).
		Msg("Hypothesis tests finished")

	return nil
}

func (p *Pipeline) observeStage(stage string, start time.Time, out *Output) {
	d := time.Since(start)

	observability.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	out.Timings = append(out.Timings, StageTiming{Stage: stage, Duration: d})
}
