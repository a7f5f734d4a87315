// Package pickstore persists finalized auction picks to Postgres.
package pickstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is a pgx-backed auction.PickRecorder.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an existing connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordPick writes the durable record of a sold player. The unique
// constraint on (draft_id, player_id) makes replays after a crash
// harmless.
func (r *Repository) RecordPick(ctx context.Context, draftID, teamID, playerID uuid.UUID, amount int) error {
	const query = `
		INSERT INTO auction_picks (id, draft_id, team_id, player_id, amount, picked_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (draft_id, player_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), draftID, teamID, playerID, amount); err != nil {
		return fmt.Errorf("failed to record pick: %w", err)
	}
	return nil
}

// DraftActive reports whether the draft is still marked IN_PROGRESS in
// the durable store. Used during recovery to detect state divergence.
func (r *Repository) DraftActive(ctx context.Context, draftID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM drafts WHERE id = $1 AND status = 'IN_PROGRESS'
		)`

	var active bool
	if err := r.pool.QueryRow(ctx, query, draftID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check draft status: %w", err)
	}
	return active, nil
}
