package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// InsertReel stores a reel in the pending state. Re-inserting the same
// shortcode refreshes the description and, when it changed, queues the reel
// for re-embedding.
func (db *DB) InsertReel(ctx context.Context, reel domain.Reel) (string, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO reels (creator_id, shortcode, description, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shortcode) DO UPDATE SET
			description = EXCLUDED.description,
			status = CASE
				WHEN reels.description IS DISTINCT FROM EXCLUDED.description THEN EXCLUDED.status
				ELSE reels.status
			END
		RETURNING id
	`, reel.CreatorID, toText(reel.Shortcode), toText(reel.Description), ReelStatusPending)

	var id pgtype.UUID
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert reel: %w", err)
	}

	return fromUUID(id), nil
}

// GetReelsMissingEmbedding returns up to limit reels still waiting for an
// embedding, oldest first.
func (db *DB) GetReelsMissingEmbedding(ctx context.Context, limit int) ([]domain.Reel, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, creator_id, shortcode, description, created_at
		FROM reels
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, ReelStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get reels missing embedding: %w", err)
	}
	defer rows.Close()

	var reels []domain.Reel

	for rows.Next() {
		var (
			id          pgtype.UUID
			reel        domain.Reel
			shortcode   pgtype.Text
			description pgtype.Text
			createdAt   pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &reel.CreatorID, &shortcode, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reel: %w", err)
		}

		reel.ID = fromUUID(id)
		reel.Shortcode = fromText(shortcode)
		reel.Description = fromText(description)
		reel.Status = ReelStatusPending
		reel.CreatedAt = fromTimestamptz(createdAt)
		reels = append(reels, reel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reels: %w", err)
	}

	return reels, nil
}

// SaveReelEmbedding stores the embedding vector and marks the reel embedded.
func (db *DB) SaveReelEmbedding(ctx context.Context, reelID string, embedding []float32) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE reels SET embedding = $2, status = $3 WHERE id = $1
	`, toUUID(reelID), pgvector.NewVector(embedding), ReelStatusEmbedded); err != nil {
		return fmt.Errorf("save reel embedding: %w", err)
	}

	return nil
}

// MarkReelEmbeddingFailed marks a reel as permanently failed so the backfill
// stops retrying it.
func (db *DB) MarkReelEmbeddingFailed(ctx context.Context, reelID string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE reels SET status = $2 WHERE id = $1
	`, toUUID(reelID), ReelStatusFailed); err != nil {
		return fmt.Errorf("mark reel embedding failed: %w", err)
	}

	return nil
}

// CountPendingEmbeddings returns the number of reels still waiting for an
// embedding.
func (db *DB) CountPendingEmbeddings(ctx context.Context) (int, error) {
	var count int

	if err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reels WHERE status = $1
	`, ReelStatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending embeddings: %w", err)
	}

	return count, nil
}

// GetCreatorEmbeddings returns every embedded reel vector grouped by creator.
// Rows are ordered so repeated loads of the same data aggregate identically.
func (db *DB) GetCreatorEmbeddings(ctx context.Context) (map[int64][][]float32, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT creator_id, embedding
		FROM reels
		WHERE status = $1 AND embedding IS NOT NULL
		ORDER BY creator_id, created_at, id
	`, ReelStatusEmbedded)
	if err != nil {
		return nil, fmt.Errorf("get creator embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make(map[int64][][]float32)

	for rows.Next() {
		var (
			creatorID int64
			embedding pgvector.Vector
		)

		if err := rows.Scan(&creatorID, &embedding); err != nil {
			return nil, fmt.Errorf("scan creator embedding: %w", err)
		}

		embeddings[creatorID] = append(embeddings[creatorID], embedding.Slice())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator embeddings: %w", err)
	}

	return embeddings, nil
}
