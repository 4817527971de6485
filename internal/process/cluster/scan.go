package cluster

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

// ScanConfig sweeps the clusterer over a parameter grid.
type ScanConfig struct {
	// MinClusterSizes are the candidate minimum cluster sizes.
	MinClusterSizes []int

	// MinSamples are the candidate density smoothing values.
	MinSamples []int

	// Metric is shared by every candidate.
	Metric string

	// Workers bounds the parallel fits. Zero means one per CPU.
	Workers int
}

// Candidate is one evaluated parameter combination.
type Candidate struct {
	MinClusterSize int
	MinSamples     int
	Clusters       int
	Noise          int

	// Score is the mean cluster persistence, 0 when the combination
	// produced no clusters or failed outright.
	Score float64

	// Valid marks combinations that produced a usable clustering.
	Valid bool
}

// ScanResult holds the winning configuration and the full grid for the
// report.
type ScanResult struct {
	Best       Config
	BestResult *Result
	Candidates []Candidate
}

// Scan fits every parameter combination and picks the one with the highest
// mean cluster persistence. Ties go to the smaller minimum cluster size,
// then the smaller min samples, so reruns always agree. Combinations that
// leave everything as noise or cannot be fit at all are recorded but never
// win. When no combination yields clusters, Scan returns ErrNoResults.
func Scan(ctx context.Context, points [][]float64, cfg ScanConfig) (*ScanResult, error) {
	if len(cfg.MinClusterSizes) == 0 {
		return nil, fmt.Errorf("scan requires at least one min cluster size: %w", apperrors.ErrInvalidConfig)
	}

	if len(cfg.MinSamples) == 0 {
		return nil, fmt.Errorf("scan requires at least one min samples value: %w", apperrors.ErrInvalidConfig)
	}

	type task struct {
		index int
		cfg   Config
	}

	var tasks []task
	for _, mcs := range cfg.MinClusterSizes {
		for _, ms := range cfg.MinSamples {
			tasks = append(tasks, task{
				index: len(tasks),
				cfg:   Config{MinClusterSize: mcs, MinSamples: ms, Metric: cfg.Metric},
			})
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if workers > len(tasks) {
		workers = len(tasks)
	}

	candidates := make([]Candidate, len(tasks))
	results := make([]*Result, len(tasks))

	queue := make(chan task)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for t := range queue {
				candidates[t.index], results[t.index] = evaluate(points, t.cfg)
			}
		}()
	}

	var cancelled error

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
		case queue <- t:
			continue
		}

		break
	}

	close(queue)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	best := -1
	for i, cand := range candidates {
		if !cand.Valid {
			continue
		}

		if best == -1 || betterCandidate(cand, candidates[best]) {
			best = i
		}
	}

	if best == -1 {
		return nil, fmt.Errorf("no parameter combination produced clusters: %w", apperrors.ErrNoResults)
	}

	return &ScanResult{
		Best: Config{
			MinClusterSize: candidates[best].MinClusterSize,
			MinSamples:     candidates[best].MinSamples,
			Metric:         cfg.Metric,
		},
		BestResult: results[best],
		Candidates: candidates,
	}, nil
}

func evaluate(points [][]float64, cfg Config) (Candidate, *Result) {
	cand := Candidate{
		MinClusterSize: cfg.MinClusterSize,
		MinSamples:     cfg.MinSamples,
	}

	clusterer, err := New(cfg)
	if err != nil {
		return cand, nil
	}

	result, err := clusterer.Fit(points)
	if err != nil {
		return cand, nil
	}

	cand.Clusters = len(result.Clusters)
	cand.Noise = result.NoiseCount()

	if cand.Clusters < 2 {
		return cand, result
	}

	var sum float64
	for _, info := range result.Clusters {
		sum += info.Persistence
	}

	cand.Score = sum / float64(cand.Clusters)
	cand.Valid = true

	return cand, result
}

func betterCandidate(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}

	if a.MinClusterSize != b.MinClusterSize {
		return a.MinClusterSize < b.MinClusterSize
	}

	return a.MinSamples < b.MinSamples
}
