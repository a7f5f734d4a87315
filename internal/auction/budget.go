package auction

import (
	"github.com/google/uuid"

	"github.com/draftworks/auctioneer/internal/models"
)

// Ledger does per-team budget bookkeeping over the draft's budget map. It
// has no side effects beyond the map and emits no events.
type Ledger struct {
	budgets map[uuid.UUID]*models.TeamBudget
}

// NewLedger wraps the state's budget map. The map is shared, not copied:
// commits are visible to the aggregate state immediately.
func NewLedger(budgets map[uuid.UUID]*models.TeamBudget) *Ledger {
	return &Ledger{budgets: budgets}
}

// Get returns the budget entry for a team.
func (l *Ledger) Get(teamID uuid.UUID) (*models.TeamBudget, error) {
	tb, ok := l.budgets[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return tb, nil
}

// CanAfford reports whether amount is within the team's max legal bid.
func (l *Ledger) CanAfford(teamID uuid.UUID, amount int) bool {
	tb, ok := l.budgets[teamID]
	if !ok {
		return false
	}
	return amount <= tb.MaxBid
}

// Commit applies a winning bid: spend the amount, fill a roster slot,
// append the player and recompute the max bid. The affordability re-check
// here is deliberate; state may have changed between validation and commit
// when operations interleave, and a failed commit must not mutate.
func (l *Ledger) Commit(teamID, playerID uuid.UUID, amount int) error {
	tb, ok := l.budgets[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	if amount > tb.MaxBid {
		return ErrInsufficientBudget
	}

	tb.Spent += amount
	tb.Remaining -= amount
	tb.FilledSpots++
	tb.Players = append(tb.Players, playerID)
	tb.RecalcMaxBid()
	return nil
}
