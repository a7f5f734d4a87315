// Package snapshot persists auction state to Redis for crash recovery.
// Each draft is one hash with flat key/value fields; in-memory container
// types exist only on either side of the encode/decode boundary here.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/auction"
	"github.com/draftworks/auctioneer/internal/models"
)

// TTLSnapshot bounds how long an abandoned draft's state survives.
const TTLSnapshot = 24 * time.Hour

// Store is a Redis-backed auction.SnapshotStore.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore wraps an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: TTLSnapshot}
}

func key(draftID uuid.UUID) string {
	return fmt.Sprintf("auction:draft:%s", draftID)
}

// Save replaces the draft's snapshot hash and refreshes its expiry.
func (s *Store) Save(ctx context.Context, state *models.AuctionState) error {
	fields, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("encode auction state: %w", err)
	}

	k := key(state.DraftID)
	// Del before HSet so fields that no longer exist (a cleared
	// nomination, a removed auto-bid target) do not survive the rewrite.
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, fields)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	log.Debug().Str("draft_id", state.DraftID.String()).Int("fields", len(fields)).Msg("snapshot saved")
	return nil
}

// Load reads and decodes the draft's snapshot hash.
func (s *Store) Load(ctx context.Context, draftID uuid.UUID) (*models.AuctionState, error) {
	fields, err := s.rdb.HGetAll(ctx, key(draftID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(fields) == 0 {
		return nil, auction.ErrSnapshotNotFound
	}

	state, err := decodeState(fields)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot for draft %s: %w", draftID, err)
	}
	if state.DraftID != draftID {
		return nil, fmt.Errorf("snapshot draft id mismatch: got %s want %s", state.DraftID, draftID)
	}
	return state, nil
}

// Delete removes the draft's snapshot.
func (s *Store) Delete(ctx context.Context, draftID uuid.UUID) error {
	if err := s.rdb.Del(ctx, key(draftID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
