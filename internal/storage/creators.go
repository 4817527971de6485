package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// UpsertCreator inserts a creator or refreshes its counters when the id is
// already known.
func (db *DB) UpsertCreator(ctx context.Context, creator domain.Creator) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO creators (id, username, follower_count, following_count, reel_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			follower_count = EXCLUDED.follower_count,
			following_count = EXCLUDED.following_count,
			reel_count = EXCLUDED.reel_count
	`, creator.ID, toText(creator.Username), creator.FollowerCount, creator.FollowingCount, creator.ReelCount); err != nil {
		return fmt.Errorf("upsert creator: %w", err)
	}

	return nil
}

// GetCreator returns a single creator by id, or nil when unknown.
func (db *DB) GetCreator(ctx context.Context, id int64) (*domain.Creator, error) {
	var (
		username  pgtype.Text
		followers int64
		following int64
		reels     int
		createdAt pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT username, follower_count, following_count, reel_count, created_at
		FROM creators
		WHERE id = $1
	`, id).Scan(&username, &followers, &following, &reels, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // intentional: not found is not an error
		}

		return nil, fmt.Errorf("get creator: %w", err)
	}

	return &domain.Creator{
		ID:             id,
		Username:       fromText(username),
		FollowerCount:  followers,
		FollowingCount: following,
		ReelCount:      reels,
		CreatedAt:      fromTimestamptz(createdAt),
	}, nil
}
