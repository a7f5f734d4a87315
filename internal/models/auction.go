package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus defines the lifecycle status of an auction draft.
type AuctionStatus string

const (
	AuctionStatusInProgress AuctionStatus = "IN_PROGRESS"
	AuctionStatusPaused     AuctionStatus = "PAUSED"
	AuctionStatusCompleted  AuctionStatus = "COMPLETED"
	AuctionStatusCancelled  AuctionStatus = "CANCELLED"
)

// TeamBudget tracks one team's spending for the lifetime of a draft.
// Invariant: Spent + Remaining == TotalBudget.
type TeamBudget struct {
	TeamID      uuid.UUID   `json:"team_id"`
	TotalBudget int         `json:"total_budget"`
	Spent       int         `json:"spent"`
	Remaining   int         `json:"remaining"`
	RosterSpots int         `json:"roster_spots"`
	FilledSpots int         `json:"filled_spots"`
	MaxBid      int         `json:"max_bid"`
	Players     []uuid.UUID `json:"players"`
}

// RecalcMaxBid recomputes the highest legal bid, reserving at least $1
// for every still-empty roster slot after the one being filled. A team
// with no open slots cannot bid at all.
func (tb *TeamBudget) RecalcMaxBid() {
	if tb.FilledSpots >= tb.RosterSpots {
		tb.MaxBid = 0
		return
	}
	max := tb.Remaining - (tb.RosterSpots - tb.FilledSpots - 1)
	if max < 0 {
		max = 0
	}
	tb.MaxBid = max
}

// Bid is an immutable record of a single bid on a nomination.
type Bid struct {
	TeamID   uuid.UUID `json:"team_id"`
	Amount   int       `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
	AutoBid  bool      `json:"auto_bid"`
}

// Nomination is the player currently up for bid. At most one exists per
// draft at any time.
type Nomination struct {
	PlayerID      uuid.UUID `json:"player_id"`
	NominatorID   uuid.UUID `json:"nominator_id"`
	CurrentBid    int       `json:"current_bid"`
	CurrentBidder uuid.UUID `json:"current_bidder"`
	BidHistory    []Bid     `json:"bid_history"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// AutoBidConfig is a team's standing proxy-bid instruction. Mutable by
// that team's client at any time.
type AutoBidConfig struct {
	Enabled         bool                  `json:"enabled"`
	TargetPlayers   map[uuid.UUID]bool    `json:"target_players,omitempty"`    // empty means all players
	MaxBidPerPlayer map[uuid.UUID]int     `json:"max_bid_per_player,omitempty"`
	DefaultMaxBid   int                   `json:"default_max_bid"`
	BidIncrement    int                   `json:"bid_increment"`
	StopAtBudget    int                   `json:"stop_at_budget"`
}

// MaxBidFor returns the configured ceiling for a player, falling back to
// the default ceiling when no per-player entry exists.
func (c *AutoBidConfig) MaxBidFor(playerID uuid.UUID) int {
	if amount, ok := c.MaxBidPerPlayer[playerID]; ok {
		return amount
	}
	return c.DefaultMaxBid
}

// Targets reports whether the config applies to the given player.
func (c *AutoBidConfig) Targets(playerID uuid.UUID) bool {
	if len(c.TargetPlayers) == 0 {
		return true
	}
	return c.TargetPlayers[playerID]
}

// AuctionState is the aggregate root for one draft's auction. It is owned
// exclusively by that draft's coordinator worker.
type AuctionState struct {
	DraftID              uuid.UUID                    `json:"draft_id"`
	Status               AuctionStatus                `json:"status"`
	Nomination           *Nomination                  `json:"nomination,omitempty"`
	TeamBudgets          map[uuid.UUID]*TeamBudget    `json:"team_budgets"`
	NominationQueue      []uuid.UUID                  `json:"nomination_queue"`
	CurrentNominatorIdx  int                          `json:"current_nominator_idx"`
	CompletedPicks       map[uuid.UUID]bool           `json:"completed_picks"`
	AutoBidSettings      map[uuid.UUID]*AutoBidConfig `json:"auto_bid_settings"`
}

// AllRostersFull reports whether every team has filled every roster slot.
func (s *AuctionState) AllRostersFull() bool {
	for _, tb := range s.TeamBudgets {
		if tb.FilledSpots < tb.RosterSpots {
			return false
		}
	}
	return true
}
