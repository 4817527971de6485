// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Analyze mode: One full analysis epoch, then a report file
//   - Worker mode: Periodic analysis epochs on a poll interval
//   - Embed mode: One embedding backfill pass over pending reels
//   - Report mode: Render the latest completed epoch without recomputing
//
// Each mode can be run independently based on deployment needs.
package app

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/embeddings"
	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
	"github.com/molchalih/inst2txt/internal/platform/config"
	"github.com/molchalih/inst2txt/internal/platform/observability"
	"github.com/molchalih/inst2txt/internal/platform/worker"
	"github.com/molchalih/inst2txt/internal/process/analysis"
	"github.com/molchalih/inst2txt/internal/process/backfill"
	"github.com/molchalih/inst2txt/internal/process/cluster"
	"github.com/molchalih/inst2txt/internal/process/homophily"
	"github.com/molchalih/inst2txt/internal/process/reduce"
	"github.com/molchalih/inst2txt/internal/report"
	db "github.com/molchalih/inst2txt/internal/storage"
)

const (
	logFieldComponent = "component"

	componentAnalysis   = "analysis"
	componentBackfill   = "backfill"
	componentEmbeddings = "embeddings"

	similarCreatorLimit = 10
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunAnalyze runs one analysis epoch and writes the report file.
func (a *App) RunAnalyze(ctx context.Context) error {
	a.logger.Info().Msg("Starting analyze mode")

	svc := a.newAnalysisService()

	out, err := svc.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}

	return a.writeReport(out)
}

// RunWorker runs analysis epochs on the configured poll interval until the
// context is canceled. A failed epoch is logged and the loop keeps going.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("Starting worker mode")

	svc := a.newAnalysisService()
	logger := a.logger.With().Str(logFieldComponent, componentAnalysis).Logger()

	err := worker.Loop(ctx, worker.Config{
		Name:         componentAnalysis,
		PollInterval: a.cfg.WorkerPollInterval,
		Process: func(ctx context.Context) error {
			return worker.RunWithTimeout(ctx, a.cfg.AnalysisTimeout, func(ctx context.Context) error {
				out, err := svc.RunOnce(ctx)
				if err != nil {
					return err
				}

				return a.writeReport(out)
			})
		},
		Logger: &logger,
	})
	if err != nil {
		return fmt.Errorf("worker run: %w", err)
	}

	return nil
}

// RunEmbed runs one embedding backfill pass over pending reels.
func (a *App) RunEmbed(ctx context.Context) error {
	a.logger.Info().Msg("Starting embed mode")

	logger := a.logger.With().Str(logFieldComponent, componentBackfill).Logger()
	w := backfill.New(a.database, a.newEmbeddingProvider(), backfill.Config{
		BatchSize: a.cfg.EmbedBatchSize,
	}, logger)

	if _, err := w.Run(ctx); err != nil {
		return fmt.Errorf("embedding backfill: %w", err)
	}

	return nil
}

// RunReport renders the latest completed epoch. With a creator id it prints
// the profile-nearest creators instead of the full report.
func (a *App) RunReport(ctx context.Context, creatorID int64) error {
	epoch, err := a.database.GetLatestCompletedEpoch(ctx)
	if err != nil {
		return fmt.Errorf("load latest epoch: %w", err)
	}

	if epoch == nil {
		return fmt.Errorf("no completed analysis epoch: %w", apperrors.ErrNoResults)
	}

	if creatorID != 0 {
		return a.printSimilarCreators(ctx, epoch.ID, creatorID)
	}

	records, err := a.database.GetAssignments(ctx, epoch.ID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	results, err := a.database.GetHomophilyResults(ctx, epoch.ID)
	if err != nil {
		return fmt.Errorf("load homophily results: %w", err)
	}

	if err := report.FromRecords(*epoch, records, results).Write(os.Stdout); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func (a *App) printSimilarCreators(ctx context.Context, epochID string, creatorID int64) error {
	creator, err := a.database.GetCreator(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("load creator: %w", err)
	}

	if creator == nil {
		return fmt.Errorf("creator %d is not tracked: %w", creatorID, apperrors.ErrNotFound)
	}

	label := creator.Username
	if label == "" {
		label = strconv.FormatInt(creatorID, 10)
	}

	similar, err := a.database.GetSimilarCreators(ctx, epochID, creatorID, similarCreatorLimit)
	if err != nil {
		return fmt.Errorf("load similar creators: %w", err)
	}

	if len(similar) == 0 {
		fmt.Printf("no similar creators found for %s\n", label)

		return nil
	}

	fmt.Printf("creators closest to %s:\n", label)

	for _, s := range similar {
		name := s.Username
		if name == "" {
			name = strconv.FormatInt(s.CreatorID, 10)
		}

		fmt.Printf("%-24s cluster=%d distance=%.4f\n", name, s.ClusterID, s.Distance)
	}

	return nil
}

func (a *App) writeReport(out *analysis.Output) error {
	f, err := os.Create(a.cfg.ReportPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	if err := report.FromOutput(out.Epoch, out).Write(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	a.logger.Info().Str("path", a.cfg.ReportPath).Msg("Report written")

	return nil
}

// newAnalysisService assembles the pipeline from the flat config.
func (a *App) newAnalysisService() *analysis.Service {
	logger := a.logger.With().Str(logFieldComponent, componentAnalysis).Logger()

	pipeline := analysis.NewPipeline(analysis.Config{
		Seed: a.cfg.AnalysisSeed,
		Reduce: reduce.Config{
			Neighbors:    a.cfg.AnalysisNeighbors,
			Components:   a.cfg.AnalysisComponents,
			Metric:       a.cfg.AnalysisMetric,
			MinDist:      a.cfg.AnalysisMinDist,
			Epochs:       a.cfg.AnalysisEpochs,
			LearningRate: a.cfg.AnalysisLearningRate,
		},
		Cluster: cluster.Config{
			MinClusterSize: a.cfg.MinClusterSize,
			MinSamples:     a.cfg.MinSamples,
			Metric:         a.cfg.AnalysisMetric,
		},
		Permutation: homophily.PermutationConfig{
			Trials:  a.cfg.PermutationTrials,
			Workers: a.cfg.AnalysisWorkers,
		},
		Scan: a.newScanConfig(),
	}, logger)

	return analysis.NewService(a.database, pipeline, logger)
}

func (a *App) newScanConfig() *cluster.ScanConfig {
	if !a.cfg.ScanEnabled {
		return nil
	}

	return &cluster.ScanConfig{
		MinClusterSizes: a.cfg.ScanMinClusterSizes,
		MinSamples:      a.cfg.ScanMinSamples,
		Metric:          a.cfg.AnalysisMetric,
		Workers:         a.cfg.AnalysisWorkers,
	}
}

// newEmbeddingProvider creates the embedding provider from config. Without an
// API key the deterministic mock provider is used.
func (a *App) newEmbeddingProvider() embeddings.Provider {
	logger := a.logger.With().Str(logFieldComponent, componentEmbeddings).Logger()

	return embeddings.New(embeddings.Config{
		APIKey:     a.cfg.OpenAIAPIKey,
		Model:      a.cfg.EmbeddingModel,
		Dimensions: a.cfg.EmbeddingDimensions,
		RateLimit:  a.cfg.EmbeddingRPS,
	}, &logger)
}
