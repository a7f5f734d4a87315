// Package players is the read-only player catalog and eligibility lookup.
package players

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftworks/auctioneer/internal/models"
)

// ErrPlayerNotFound is returned when no catalog entry exists for an ID.
var ErrPlayerNotFound = errors.New("player not found")

// Repository is a pgx-backed auction.PlayerCatalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an existing connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// PlayerByID returns one catalog entry.
func (r *Repository) PlayerByID(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	const query = `
		SELECT id, full_name, position, adp
		FROM players
		WHERE id = $1`

	var p models.Player
	err := r.pool.QueryRow(ctx, query, playerID).Scan(&p.ID, &p.FullName, &p.Position, &p.ADP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

// IsAvailable reports whether the player exists and has not been picked
// in the given draft.
func (r *Repository) IsAvailable(ctx context.Context, draftID, playerID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM players p
			WHERE p.id = $1
			AND NOT EXISTS (
				SELECT 1 FROM auction_picks ap
				WHERE ap.draft_id = $2 AND ap.player_id = p.id
			)
		)`

	var available bool
	if err := r.pool.QueryRow(ctx, query, playerID, draftID).Scan(&available); err != nil {
		return false, fmt.Errorf("failed to check player availability: %w", err)
	}
	return available, nil
}

// TopAvailable lists undrafted players for a draft by ascending ADP.
func (r *Repository) TopAvailable(ctx context.Context, draftID uuid.UUID, limit int) ([]models.Player, error) {
	const query = `
		SELECT p.id, p.full_name, p.position, p.adp
		FROM players p
		WHERE NOT EXISTS (
			SELECT 1 FROM auction_picks ap
			WHERE ap.draft_id = $1 AND ap.player_id = p.id
		)
		ORDER BY p.adp ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, draftID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.FullName, &p.Position, &p.ADP); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}
	return players, nil
}
