// Package homophily runs the hypothesis tests over the clustered follow
// graph: whether follows concentrate inside aesthetic clusters, whether
// spatially central creators are the confident ones, and whether creators
// between clusters pay for it in membership confidence.
package homophily

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/process/socialgraph"
)

const defaultTrials = 1000

// PermutationConfig controls the label permutation test.
type PermutationConfig struct {
	// Trials is the number of label shuffles, default 1000.
	Trials int

	// Seed derives one independent stream per trial, so results do not
	// depend on how trials are spread over workers.
	Seed int64

	// Workers bounds the parallel trials. Zero means one per CPU.
	Workers int
}

func (c PermutationConfig) withDefaults() PermutationConfig {
	if c.Trials == 0 {
		c.Trials = defaultTrials
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	return c
}

// EdgeTestResult is the outcome of the same-cluster edge test.
type EdgeTestResult struct {
	// ObservedRate is the fraction of edges whose endpoints share a cluster.
	ObservedRate float64

	// NullMean is the mean of that fraction over the label permutations.
	NullMean float64

	// PValue is the two-sided permutation p-value in (0, 1].
	PValue float64

	SameCluster int
	Edges       int
	Nodes       int
	Trials      int
}

// SameClusterEdgeTest measures how strongly follows concentrate within
// clusters against a null that shuffles cluster labels over the nodes while
// keeping the edge structure fixed. Extremeness is two-sided: a trial
// counts when its rate deviates from the null mean at least as far as the
// observed rate does. The p-value uses the add-one estimate, so it is never
// exactly zero.
func SameClusterEdgeTest(ctx context.Context, g *socialgraph.Graph, cfg PermutationConfig) (*EdgeTestResult, error) {
	cfg = cfg.withDefaults()

	if cfg.Trials < 1 {
		return nil, fmt.Errorf("trials must be >= 1, got %d: %w", cfg.Trials, apperrors.ErrInvalidConfig)
	}

	edges := g.IndexedEdges()
	labels := g.LabelVector()

	if len(edges) == 0 {
		return nil, fmt.Errorf("edge test requires at least 1 edge between clustered creators: %w", apperrors.ErrInsufficientData)
	}

	if len(labels) < 2 {
		return nil, fmt.Errorf("edge test requires at least 2 clustered creators: %w", apperrors.ErrInsufficientData)
	}

	distinct := make(map[int]struct{}, 4)
	for _, l := range labels {
		distinct[l] = struct{}{}
	}

	if len(distinct) < 2 {
		// With one cluster every permutation reproduces the observed rate and
		// the test has no power.
		return nil, fmt.Errorf("edge test requires at least 2 distinct clusters, got %d: %w", len(distinct), apperrors.ErrInsufficientData)
	}

	observed := float64(g.SameClusterCount()) / float64(len(edges))

	stats := make([]float64, cfg.Trials)

	trialCh := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			scratch := make([]int, len(labels))

			for trial := range trialCh {
				stats[trial] = permutedRate(labels, edges, scratch, cfg.Seed+int64(trial))
			}
		}()
	}

	var cancelled error

	for trial := 0; trial < cfg.Trials; trial++ {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
		case trialCh <- trial:
			continue
		}

		break
	}

	close(trialCh)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	var sum float64
	for _, s := range stats {
		sum += s
	}

	nullMean := sum / float64(cfg.Trials)
	deviation := math.Abs(observed - nullMean)

	extreme := 0
	for _, s := range stats {
		if math.Abs(s-nullMean) >= deviation {
			extreme++
		}
	}

	return &EdgeTestResult{
		ObservedRate: observed,
		NullMean:     nullMean,
		PValue:       float64(extreme+1) / float64(cfg.Trials+1),
		SameCluster:  g.SameClusterCount(),
		Edges:        len(edges),
		Nodes:        len(labels),
		Trials:       cfg.Trials,
	}, nil
}

// permutedRate shuffles the labels with a trial-specific stream and returns
// the same-cluster edge fraction under that permutation.
func permutedRate(labels []int, edges [][2]int, scratch []int, seed int64) float64 {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // permutation null, not crypto

	copy(scratch, labels)
	rng.Shuffle(len(scratch), func(i, j int) {
		scratch[i], scratch[j] = scratch[j], scratch[i]
	})

	var same int
	for _, e := range edges {
		if scratch[e[0]] == scratch[e[1]] {
			same++
		}
	}

	return float64(same) / float64(len(edges))
}
