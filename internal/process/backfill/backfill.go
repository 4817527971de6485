// Package backfill computes embeddings for reels that are still pending.
//
// The worker drains the pending set in batches. Every reel in a batch
// transitions out of the pending status, to embedded on success or to
// failed otherwise, so a run always terminates even when individual reels
// cannot be embedded.
package backfill

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/domain"
	"github.com/molchalih/inst2txt/internal/core/embeddings"
	"github.com/molchalih/inst2txt/internal/platform/observability"
	db "github.com/molchalih/inst2txt/internal/storage"
)

const defaultBatchSize = 64

// Backfill outcome labels for the embeddings counter.
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// Repository is the storage surface the backfill worker depends on.
type Repository interface {
	GetReelsMissingEmbedding(ctx context.Context, limit int) ([]domain.Reel, error)
	SaveReelEmbedding(ctx context.Context, reelID string, embedding []float32) error
	MarkReelEmbeddingFailed(ctx context.Context, reelID string) error
	CountPendingEmbeddings(ctx context.Context) (int, error)
}

var _ Repository = (*db.DB)(nil)

// Config holds backfill worker settings.
type Config struct {
	BatchSize int
}

// Stats summarizes one backfill run.
type Stats struct {
	Embedded int
	Skipped  int
	Failed   int
}

// Worker embeds pending reels through a provider.
type Worker struct {
	repo      Repository
	provider  embeddings.Provider
	batchSize int
	logger    zerolog.Logger
}

func New(repo Repository, provider embeddings.Provider, cfg Config, logger zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Worker{
		repo:      repo,
		provider:  provider,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Run embeds every pending reel and returns the per-status counts. A reel
// whose description is empty after normalization is marked failed without a
// provider call. Provider and storage failures are recorded per reel and do
// not abort the run; only context cancellation and a batch that made no
// progress at all do.
func (w *Worker) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := w.repo.CountPendingEmbeddings(ctx)
	if err != nil {
		return stats, fmt.Errorf("count pending embeddings: %w", err)
	}

	w.logger.Info().
		Int("pending", pending).
		Str("provider", string(w.provider.Name())).
		Int("dimensions", w.provider.Dimensions()).
		Msg("Embedding backfill started")

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		reels, err := w.repo.GetReelsMissingEmbedding(ctx, w.batchSize)
		if err != nil {
			return stats, fmt.Errorf("load pending reels: %w", err)
		}

		if len(reels) == 0 {
			break
		}

		transitions := w.processBatch(ctx, reels, &stats)

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if transitions == 0 {
			return stats, fmt.Errorf("embedding backfill made no progress on a batch of %d reels", len(reels))
		}

		if len(reels) < w.batchSize {
			break
		}
	}

	w.logger.Info().
		Int("embedded", stats.Embedded).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Embedding backfill completed")

	return stats, nil
}

// processBatch embeds one batch and returns how many reels left the pending
// status. A reel that fails to persist stays pending and is not counted as a
// transition.
func (w *Worker) processBatch(ctx context.Context, reels []domain.Reel, stats *Stats) int {
	var transitions int

	for _, reel := range reels {
		if ctx.Err() != nil {
			return transitions
		}

		text := embeddings.NormalizeText(reel.Description)
		if text == "" {
			if w.markFailed(ctx, reel.ID) {
				transitions++
			}

			stats.Skipped++
			observability.EmbeddingsBackfilled.WithLabelValues(statusSkipped).Inc()

			continue
		}

		res, err := w.provider.GetEmbedding(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return transitions
			}

			w.logger.Warn().Err(err).Str("reel_id", reel.ID).Msg("embedding request failed")

			if w.markFailed(ctx, reel.ID) {
				transitions++
			}

			stats.Failed++
			observability.EmbeddingsBackfilled.WithLabelValues(statusFailed).Inc()

			continue
		}

		if err := w.repo.SaveReelEmbedding(ctx, reel.ID, res.Vector); err != nil {
			w.logger.Warn().Err(err).Str("reel_id", reel.ID).Msg("failed to save reel embedding")

			stats.Failed++
			observability.EmbeddingsBackfilled.WithLabelValues(statusFailed).Inc()

			continue
		}

		transitions++
		stats.Embedded++
		observability.EmbeddingsBackfilled.WithLabelValues(statusOK).Inc()
	}

	return transitions
}

func (w *Worker) markFailed(ctx context.Context, reelID string) bool {
	if err := w.repo.MarkReelEmbeddingFailed(ctx, reelID); err != nil {
		w.logger.Warn().Err(err).Str("reel_id", reelID).Msg("failed to mark reel embedding as failed")

		return false
	}

	return true
}
