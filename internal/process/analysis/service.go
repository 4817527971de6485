package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/domain"
	"github.com/molchalih/inst2txt/internal/platform/observability"
	db "github.com/molchalih/inst2txt/internal/storage"
)

const (
	runStatusOK    = "ok"
	runStatusError = "error"
)

// Repository is the storage surface the analysis service depends on.
type Repository interface {
	GetCreatorEmbeddings(ctx context.Context) (map[int64][][]float32, error)
	GetFollowEdges(ctx context.Context) ([]domain.FollowEdge, error)
	CreateAnalysisEpoch(ctx context.Context, epoch domain.AnalysisEpoch) error
	SaveCreatorAssignments(ctx context.Context, epochID string, records []domain.CreatorRecord) error
	SaveHomophilyResults(ctx context.Context, epochID string, results []domain.HomophilyResult) error
	CompleteAnalysisEpoch(ctx context.Context, epoch domain.AnalysisEpoch) error
	FailAnalysisEpoch(ctx context.Context, epochID, reason string) error
}

var _ Repository = (*db.DB)(nil)

// Service loads pipeline inputs from storage, runs an epoch and persists
// everything it produced.
type Service struct {
	repo     Repository
	pipeline *Pipeline
	logger   zerolog.Logger
}

func NewService(repo Repository, pipeline *Pipeline, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		logger:   logger,
	}
}

// RunOnce executes one epoch end to end. The epoch row is created after the
// inputs load, so a storage read failure surfaces as a plain error without
// a half-recorded epoch. Pipeline and persistence failures mark the epoch
// failed and keep the original error.
func (s *Service) RunOnce(ctx context.Context) (*Output, error) {
	embeddings, err := s.repo.GetCreatorEmbeddings(ctx)
	if err != nil {
		observability.PipelineRuns.WithLabelValues(runStatusError).Inc()
		return nil, fmt.Errorf("load creator embeddings: %w", err)
	}

	edges, err := s.repo.GetFollowEdges(ctx)
	if err != nil {
		observability.PipelineRuns.WithLabelValues(runStatusError).Inc()
		return nil, fmt.Errorf("load follow edges: %w", err)
	}

	epochID := uuid.New()
	startedAt := time.Now().UTC()

	epoch := domain.AnalysisEpoch{
		ID:        epochID.String(),
		Status:    domain.EpochStatusRunning,
		Seed:      s.pipeline.cfg.Seed,
		StartedAt: startedAt,
	}

	if err := s.repo.CreateAnalysisEpoch(ctx, epoch); err != nil {
		observability.PipelineRuns.WithLabelValues(runStatusError).Inc()
		return nil, fmt.Errorf("create analysis epoch: %w", err)
	}

	out, err := s.pipeline.Run(ctx, Inputs{
		EpochID:    epochID,
		Embeddings: embeddings,
		Edges:      edges,
	})
	if err != nil {
		return nil, s.failEpoch(ctx, epochID.String(), err)
	}

	if err := s.repo.SaveCreatorAssignments(ctx, epochID.String(), out.Creators); err != nil {
		return nil, s.failEpoch(ctx, epochID.String(), fmt.Errorf("save creator assignments: %w", err))
	}

	if err := s.repo.SaveHomophilyResults(ctx, epochID.String(), out.Homophily); err != nil {
		return nil, s.failEpoch(ctx, epochID.String(), fmt.Errorf("save homophily results: %w", err))
	}

	epoch.Status = domain.EpochStatusCompleted
	epoch.CreatorCount = len(out.Creators)
	epoch.ClusterCount = len(out.Clusters)
	epoch.NoiseCount = out.NoiseCount()
	epoch.EdgeCount = out.Graph.Edges
	epoch.FinishedAt = time.Now().UTC()

	if err := s.repo.CompleteAnalysisEpoch(ctx, epoch); err != nil {
		return nil, s.failEpoch(ctx, epochID.String(), fmt.Errorf("complete analysis epoch: %w", err))
	}

	out.Epoch = epoch

	s.updateGauges(out)
	observability.PipelineRuns.WithLabelValues(runStatusOK).Inc()

	s.logger.Info().
		Str("epoch_id", epochID.String()).
		Int("creators", epoch.CreatorCount).
		Int("clusters", epoch.ClusterCount).
		Int("noise", epoch.NoiseCount).
		Int("edges", epoch.EdgeCount).
		Dur("took", epoch.FinishedAt.Sub(startedAt)).
		Msg("Analysis epoch completed")

	return out, nil
}

// failEpoch records the failure on the epoch row and returns the original
// error. A failure to record is logged, never propagated over the cause.
func (s *Service) failEpoch(ctx context.Context, epochID string, cause error) error {
	observability.PipelineRuns.WithLabelValues(runStatusError).Inc()

	if err := s.repo.FailAnalysisEpoch(ctx, epochID, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("epoch_id", epochID).Msg("Failed to mark epoch as failed")
	}

	return cause
}

func (s *Service) updateGauges(out *Output) {
	observability.CreatorsAnalyzed.Set(float64(len(out.Creators)))
	observability.CreatorsSkipped.Set(float64(len(out.Skipped)))
	observability.ClustersFound.Set(float64(len(out.Clusters)))
	observability.NoiseCreators.Set(float64(out.NoiseCount()))
	observability.GraphEdges.Set(float64(out.Graph.Edges))
}
