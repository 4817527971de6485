package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// SimilarCreator is one row of a profile-similarity lookup.
type SimilarCreator struct {
	CreatorID int64
	Username  string
	ClusterID int
	Distance  float64
}

// CreateAnalysisEpoch records the start of an analysis run.
func (db *DB) CreateAnalysisEpoch(ctx context.Context, epoch domain.AnalysisEpoch) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO analysis_epochs (id, status, seed, started_at)
		VALUES ($1, $2, $3, $4)
	`, toUUID(epoch.ID), toText(epoch.Status), epoch.Seed, toTimestamptz(epoch.StartedAt)); err != nil {
		return fmt.Errorf("create analysis epoch: %w", err)
	}

	return nil
}

// CompleteAnalysisEpoch marks an epoch completed and stores its summary
// counters.
func (db *DB) CompleteAnalysisEpoch(ctx context.Context, epoch domain.AnalysisEpoch) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE analysis_epochs
		SET status = $2,
			creator_count = $3,
			cluster_count = $4,
			noise_count = $5,
			edge_count = $6,
			finished_at = $7
		WHERE id = $1
	`, toUUID(epoch.ID), toText(epoch.Status), epoch.CreatorCount, epoch.ClusterCount,
		epoch.NoiseCount, epoch.EdgeCount, toTimestamptz(epoch.FinishedAt)); err != nil {
		return fmt.Errorf("complete analysis epoch: %w", err)
	}

	return nil
}

// FailAnalysisEpoch marks an epoch failed and records the failure reason.
func (db *DB) FailAnalysisEpoch(ctx context.Context, epochID, reason string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE analysis_epochs
		SET status = $2, error = $3, finished_at = NOW()
		WHERE id = $1
	`, toUUID(epochID), toText(EpochStatusFailed), toText(reason)); err != nil {
		return fmt.Errorf("fail analysis epoch: %w", err)
	}

	return nil
}

// GetLatestCompletedEpoch returns the most recently finished completed epoch,
// or nil when no run has completed yet.
func (db *DB) GetLatestCompletedEpoch(ctx context.Context) (*domain.AnalysisEpoch, error) {
	var (
		id         pgtype.UUID
		epoch      domain.AnalysisEpoch
		status     pgtype.Text
		startedAt  pgtype.Timestamptz
		finishedAt pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, status, seed, creator_count, cluster_count, noise_count, edge_count, started_at, finished_at
		FROM analysis_epochs
		WHERE status = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`, EpochStatusCompleted).Scan(&id, &status, &epoch.Seed, &epoch.CreatorCount,
		&epoch.ClusterCount, &epoch.NoiseCount, &epoch.EdgeCount, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // intentional: not found is not an error
		}

		return nil, fmt.Errorf("get latest completed epoch: %w", err)
	}

	epoch.ID = fromUUID(id)
	epoch.Status = fromText(status)
	epoch.StartedAt = fromTimestamptz(startedAt)
	epoch.FinishedAt = fromTimestamptz(finishedAt)

	return &epoch, nil
}

// SaveCreatorAssignments replaces all per-creator results for an epoch in one
// transaction.
func (db *DB) SaveCreatorAssignments(ctx context.Context, epochID string, records []domain.CreatorRecord) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM creator_assignments WHERE epoch_id = $1
	`, toUUID(epochID)); err != nil {
		return fmt.Errorf("clear creator assignments: %w", err)
	}

	for _, record := range records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO creator_assignments (epoch_id, creator_id, cluster_id, confidence, coords, profile, sample_size)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, toUUID(epochID), record.CreatorID, record.ClusterID, record.Confidence,
			coordsToVector(record.Coords), pgvector.NewVector(record.Profile), record.SampleSize); err != nil {
			return fmt.Errorf("insert creator assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit creator assignments: %w", err)
	}

	return nil
}

// GetAssignments returns all per-creator results stored under an epoch.
func (db *DB) GetAssignments(ctx context.Context, epochID string) ([]domain.CreatorRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT creator_id, cluster_id, confidence, coords, profile, sample_size
		FROM creator_assignments
		WHERE epoch_id = $1
		ORDER BY creator_id
	`, toUUID(epochID))
	if err != nil {
		return nil, fmt.Errorf("get assignments: %w", err)
	}
	defer rows.Close()

	var records []domain.CreatorRecord

	for rows.Next() {
		var (
			record  domain.CreatorRecord
			coords  pgvector.Vector
			profile pgvector.Vector
		)

		if err := rows.Scan(&record.CreatorID, &record.ClusterID, &record.Confidence,
			&coords, &profile, &record.SampleSize); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}

		record.Coords = vectorToCoords(coords)
		record.Profile = profile.Slice()
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return records, nil
}

// SaveHomophilyResults replaces all hypothesis-test results for an epoch in
// one transaction.
func (db *DB) SaveHomophilyResults(ctx context.Context, epochID string, results []domain.HomophilyResult) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit returns error, this is best-effort cleanup
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM homophily_results WHERE epoch_id = $1
	`, toUUID(epochID)); err != nil {
		return fmt.Errorf("clear homophily results: %w", err)
	}

	for _, result := range results {
		if _, err := tx.Exec(ctx, `
			INSERT INTO homophily_results (epoch_id, hypothesis, statistic, p_value, null_mean, sample_size)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, toUUID(epochID), toText(result.Hypothesis), result.Statistic, result.PValue,
			result.NullMean, result.SampleSize); err != nil {
			return fmt.Errorf("insert homophily result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit homophily results: %w", err)
	}

	return nil
}

// GetHomophilyResults returns all hypothesis-test results stored under an
// epoch.
func (db *DB) GetHomophilyResults(ctx context.Context, epochID string) ([]domain.HomophilyResult, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT hypothesis, statistic, p_value, null_mean, sample_size
		FROM homophily_results
		WHERE epoch_id = $1
		ORDER BY hypothesis
	`, toUUID(epochID))
	if err != nil {
		return nil, fmt.Errorf("get homophily results: %w", err)
	}
	defer rows.Close()

	var results []domain.HomophilyResult

	for rows.Next() {
		var (
			result     domain.HomophilyResult
			hypothesis pgtype.Text
		)

		if err := rows.Scan(&hypothesis, &result.Statistic, &result.PValue,
			&result.NullMean, &result.SampleSize); err != nil {
			return nil, fmt.Errorf("scan homophily result: %w", err)
		}

		result.Hypothesis = fromText(hypothesis)
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate homophily results: %w", err)
	}

	return results, nil
}

// GetSimilarCreators returns the creators whose profile vectors sit closest to
// the given creator within one epoch, using cosine distance (pgvector <=>).
func (db *DB) GetSimilarCreators(ctx context.Context, epochID string, creatorID int64, limit int) ([]SimilarCreator, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT a.creator_id, c.username, a.cluster_id, a.profile <=> b.profile AS distance
		FROM creator_assignments a
		JOIN creator_assignments b ON b.epoch_id = a.epoch_id AND b.creator_id = $2
		LEFT JOIN creators c ON c.id = a.creator_id
		WHERE a.epoch_id = $1 AND a.creator_id <> $2
		ORDER BY a.profile <=> b.profile
		LIMIT $3
	`, toUUID(epochID), creatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("get similar creators: %w", err)
	}
	defer rows.Close()

	var similar []SimilarCreator

	for rows.Next() {
		var (
			row      SimilarCreator
			username pgtype.Text
		)

		if err := rows.Scan(&row.CreatorID, &username, &row.ClusterID, &row.Distance); err != nil {
			return nil, fmt.Errorf("scan similar creator: %w", err)
		}

		row.Username = fromText(username)
		similar = append(similar, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar creators: %w", err)
	}

	return similar, nil
}

func coordsToVector(coords []float64) pgvector.Vector {
	out := make([]float32, len(coords))
	for i, v := range coords {
		out[i] = float32(v)
	}

	return pgvector.NewVector(out)
}

func vectorToCoords(v pgvector.Vector) []float64 {
	s := v.Slice()

	out := make([]float64, len(s))
	for i, f := range s {
		out[i] = float64(f)
	}

	return out
}
