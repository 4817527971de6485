// Package config loads application settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

// Reduction metric names accepted by ANALYSIS_METRIC.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
	ReportPath  string `env:"REPORT_PATH" envDefault:"report.json"`

	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"6h"`
	AnalysisTimeout    time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"30m"`

	// Analysis parameters. One seed drives the whole epoch.
	AnalysisSeed         int64   `env:"ANALYSIS_SEED" envDefault:"42"`
	AnalysisNeighbors    int     `env:"ANALYSIS_NEIGHBORS" envDefault:"15"`
	AnalysisComponents   int     `env:"ANALYSIS_COMPONENTS" envDefault:"2"`
	AnalysisMinDist      float64 `env:"ANALYSIS_MIN_DIST" envDefault:"0.1"`
	AnalysisEpochs       int     `env:"ANALYSIS_EPOCHS" envDefault:"300"`
	AnalysisLearningRate float64 `env:"ANALYSIS_LEARNING_RATE" envDefault:"1.0"`
	AnalysisMetric       string  `env:"ANALYSIS_METRIC" envDefault:"euclidean"`
	MinClusterSize       int     `env:"ANALYSIS_MIN_CLUSTER_SIZE" envDefault:"8"`
	MinSamples           int     `env:"ANALYSIS_MIN_SAMPLES" envDefault:"4"`
	PermutationTrials    int     `env:"ANALYSIS_PERMUTATIONS" envDefault:"1000"`
	AnalysisWorkers      int     `env:"ANALYSIS_WORKERS" envDefault:"0"`

	// Parameter scan over the clusterer grid, off by default.
	ScanEnabled         bool  `env:"ANALYSIS_SCAN_ENABLED" envDefault:"false"`
	ScanMinClusterSizes []int `env:"ANALYSIS_SCAN_MIN_CLUSTER_SIZES" envSeparator:"," envDefault:"5,8,12,20"`
	ScanMinSamples      []int `env:"ANALYSIS_SCAN_MIN_SAMPLES" envSeparator:"," envDefault:"2,4,8"`

	// Embedding provider settings.
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"768"`
	EmbeddingRPS        int    `env:"EMBEDDING_RPS" envDefault:"1"`
	EmbedBatchSize      int    `env:"EMBED_BATCH_SIZE" envDefault:"64"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects parameter combinations the analysis stages would refuse
// anyway, so a bad deployment fails at boot instead of mid-epoch.
func (c *Config) Validate() error {
	if c.AnalysisNeighbors < 2 {
		return fmt.Errorf("ANALYSIS_NEIGHBORS must be at least 2, got %d: %w", c.AnalysisNeighbors, apperrors.ErrInvalidConfig)
	}

	if c.AnalysisComponents < 1 {
		return fmt.Errorf("ANALYSIS_COMPONENTS must be at least 1, got %d: %w", c.AnalysisComponents, apperrors.ErrInvalidConfig)
	}

	if c.AnalysisMinDist < 0 {
		return fmt.Errorf("ANALYSIS_MIN_DIST must not be negative, got %v: %w", c.AnalysisMinDist, apperrors.ErrInvalidConfig)
	}

	if c.AnalysisEpochs < 1 {
		return fmt.Errorf("ANALYSIS_EPOCHS must be at least 1, got %d: %w", c.AnalysisEpochs, apperrors.ErrInvalidConfig)
	}

	if c.AnalysisMetric != MetricEuclidean && c.AnalysisMetric != MetricCosine {
		return fmt.Errorf("ANALYSIS_METRIC must be %q or %q, got %q: %w", MetricEuclidean, MetricCosine, c.AnalysisMetric, apperrors.ErrInvalidConfig)
	}

	if c.MinClusterSize < 2 {
		return fmt.Errorf("ANALYSIS_MIN_CLUSTER_SIZE must be at least 2, got %d: %w", c.MinClusterSize, apperrors.ErrInvalidConfig)
	}

	if c.MinSamples < 1 {
		return fmt.Errorf("ANALYSIS_MIN_SAMPLES must be at least 1, got %d: %w", c.MinSamples, apperrors.ErrInvalidConfig)
	}

	if c.PermutationTrials < 1 {
		return fmt.Errorf("ANALYSIS_PERMUTATIONS must be at least 1, got %d: %w", c.PermutationTrials, apperrors.ErrInvalidConfig)
	}

	if c.ScanEnabled && (len(c.ScanMinClusterSizes) == 0 || len(c.ScanMinSamples) == 0) {
		return fmt.Errorf("scan enabled with an empty parameter grid: %w", apperrors.ErrInvalidConfig)
	}

	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be at least 1, got %d: %w", c.EmbeddingDimensions, apperrors.ErrInvalidConfig)
	}

	return nil
}

// IsLocal reports whether the app runs in the local development environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}
