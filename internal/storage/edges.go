package db

import (
	"context"
	"fmt"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// InsertFollowEdge stores one (follower, followed) pair. Duplicates are
// ignored so repeated crawls are idempotent.
func (db *DB) InsertFollowEdge(ctx context.Context, edge domain.FollowEdge) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO follow_edges (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followed_id) DO NOTHING
	`, edge.FollowerID, edge.FollowedID); err != nil {
		return fmt.Errorf("insert follow edge: %w", err)
	}

	return nil
}

// GetFollowEdges returns the raw follow graph in a stable order. Self-follows
// are filtered here so crawler artifacts never reach the graph builder.
func (db *DB) GetFollowEdges(ctx context.Context) ([]domain.FollowEdge, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT follower_id, followed_id
		FROM follow_edges
		WHERE follower_id <> followed_id
		ORDER BY follower_id, followed_id
	`)
	if err != nil {
		return nil, fmt.Errorf("get follow edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.FollowEdge

	for rows.Next() {
		var edge domain.FollowEdge

		if err := rows.Scan(&edge.FollowerID, &edge.FollowedID); err != nil {
			return nil, fmt.Errorf("scan follow edge: %w", err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow edges: %w", err)
	}

	return edges, nil
}
