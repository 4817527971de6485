// Package main provides an offline comparison of the clustering pipeline
// against a PCA plus k-means baseline.
//
// The baseline tool loads a JSON dataset of per-creator embeddings, runs both
// reductions and clusterings on the same profiles and prints cluster counts,
// noise and pairwise label agreement.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/molchalih/inst2txt/internal/process/cluster"
	"github.com/molchalih/inst2txt/internal/process/profile"
	"github.com/molchalih/inst2txt/internal/process/reduce"
)

const (
	errFmt = "%v\n"

	minBaselineClusters = 2
)

type inputRecord struct {
	CreatorID  int64       `json:"creator_id"`
	Embeddings [][]float32 `json:"embeddings"`
}

type baselineConfig struct {
	inputPath      string
	seed           int64
	neighbors      int
	components     int
	minDist        float64
	epochs         int
	minClusterSize int
	minSamples     int
	kClusters      int
}

func main() {
	cfg := parseFlags()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}
}

func parseFlags() baselineConfig {
	cfg := baselineConfig{}

	flag.StringVar(&cfg.inputPath, "input", "docs/baseline/sample.json", "Path to JSON dataset")
	flag.Int64Var(&cfg.seed, "seed", 42, "Seed for reduction, k-means and jitter")
	flag.IntVar(&cfg.neighbors, "neighbors", 15, "Neighborhood size for the reduction")
	flag.IntVar(&cfg.components, "components", 2, "Output dimensionality")
	flag.Float64Var(&cfg.minDist, "min-dist", 0.1, "Minimum point spacing in the layout")
	flag.IntVar(&cfg.epochs, "epochs", 300, "Optimization passes")
	flag.IntVar(&cfg.minClusterSize, "min-cluster-size", 8, "Smallest group that counts as a cluster")
	flag.IntVar(&cfg.minSamples, "min-samples", 4, "Density smoothing value")
	flag.IntVar(&cfg.kClusters, "k", 0, "K-means cluster count (0 = match the density path)")

	flag.Parse()

	return cfg
}

func run(cfg baselineConfig) error {
	profiles, err := loadProfiles(cfg.inputPath)
	if err != nil {
		return err
	}

	dense, err := runDensityPath(cfg, profiles)
	if err != nil {
		return err
	}

	k := cfg.kClusters
	if k <= 0 {
		k = len(dense.Clusters)
	}

	if k < minBaselineClusters {
		k = minBaselineClusters
	}

	kmLabels, err := runBaselinePath(cfg, profiles, k)
	if err != nil {
		return err
	}

	printSummary(profiles, dense, k, agreement(dense.Labels, kmLabels))

	return nil
}

func loadProfiles(path string) (*profile.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	var records []inputRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	byCreator := make(map[int64][][]float32, len(records))
	for _, rec := range records {
		byCreator[rec.CreatorID] = rec.Embeddings
	}

	profiles, err := profile.Build(byCreator)
	if err != nil {
		return nil, fmt.Errorf("failed to build profiles: %w", err)
	}

	return profiles, nil
}

func runDensityPath(cfg baselineConfig, profiles *profile.Set) (*cluster.Result, error) {
	reducer, err := reduce.New(reduce.Config{
		Neighbors:  cfg.neighbors,
		Components: cfg.components,
		MinDist:    cfg.minDist,
		Epochs:     cfg.epochs,
		Seed:       cfg.seed,
	})
	if err != nil {
		return nil, fmt.Errorf("reducer init: %w", err)
	}

	coords, err := reducer.Fit(profiles.Vectors)
	if err != nil {
		return nil, fmt.Errorf("reduction: %w", err)
	}

	clusterer, err := cluster.New(cluster.Config{
		MinClusterSize: cfg.minClusterSize,
		MinSamples:     cfg.minSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("clusterer init: %w", err)
	}

	result, err := clusterer.Fit(reduce.MinMaxScale(coords))
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	return result, nil
}

func runBaselinePath(cfg baselineConfig, profiles *profile.Set, k int) ([]int, error) {
	coords, err := reduce.PCA(profiles.Vectors, cfg.components, cfg.seed)
	if err != nil {
		return nil, fmt.Errorf("pca: %w", err)
	}

	labels, _, err := cluster.KMeans(reduce.MinMaxScale(coords), k, cfg.seed)
	if err != nil {
		return nil, fmt.Errorf("k-means: %w", err)
	}

	return labels, nil
}

// agreement returns the share of point pairs on which both labelings agree
// about being in the same or in different clusters. Noise counts as its own
// group.
func agreement(a, b []int) float64 {
	n := len(a)
	if n < 2 {
		return 1
	}

	var agree, pairs int

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs++

			if (a[i] == a[j]) == (b[i] == b[j]) {
				agree++
			}
		}
	}

	return float64(agree) / float64(pairs)
}

func printSummary(profiles *profile.Set, dense *cluster.Result, k int, agree float64) {
	fmt.Printf("Baseline Comparison\n")
	fmt.Printf("  Creators: %d (skipped: %d), dim=%d\n", len(profiles.IDs), len(profiles.Skipped), profiles.Dim)
	fmt.Printf("  Density path: clusters=%d noise=%d\n", len(dense.Clusters), dense.NoiseCount())

	for _, c := range dense.Clusters {
		fmt.Printf("    cluster %d: size=%d persistence=%.3f\n", c.ID, c.Size, c.Persistence)
	}

	fmt.Printf("  Baseline path: k=%d\n", k)
	fmt.Printf("  Pair agreement: %.3f\n", agree)
}
