package auction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftworks/auctioneer/internal/models"
)

func newBudget(teamID uuid.UUID, total, spots int) *models.TeamBudget {
	tb := &models.TeamBudget{
		TeamID:      teamID,
		TotalBudget: total,
		Remaining:   total,
		RosterSpots: spots,
	}
	tb.RecalcMaxBid()
	return tb
}

func TestLedgerMaxBidReservesDollarPerOpenSlot(t *testing.T) {
	teamID := uuid.New()
	tb := newBudget(teamID, 200, 16)

	// 15 slots remain open after the one being filled.
	assert.Equal(t, 185, tb.MaxBid)
}

func TestLedgerCommit(t *testing.T) {
	teamID := uuid.New()
	playerID := uuid.New()
	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{
		teamID: newBudget(teamID, 200, 16),
	})

	require.True(t, ledger.CanAfford(teamID, 5))
	require.NoError(t, ledger.Commit(teamID, playerID, 5))

	tb, err := ledger.Get(teamID)
	require.NoError(t, err)
	assert.Equal(t, 5, tb.Spent)
	assert.Equal(t, 195, tb.Remaining)
	assert.Equal(t, 1, tb.FilledSpots)
	assert.Equal(t, tb.TotalBudget, tb.Spent+tb.Remaining)
	assert.Equal(t, 181, tb.MaxBid) // 195 - 14 reserved
	assert.Equal(t, []uuid.UUID{playerID}, tb.Players)
}

func TestLedgerMaxBidFinalSlot(t *testing.T) {
	teamID := uuid.New()
	tb := newBudget(teamID, 100, 3)
	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{teamID: tb})

	require.NoError(t, ledger.Commit(teamID, uuid.New(), 40))
	require.NoError(t, ledger.Commit(teamID, uuid.New(), 30))

	// One slot left: the reserve term is zero and the whole remaining
	// budget is biddable.
	assert.Equal(t, 2, tb.FilledSpots)
	assert.Equal(t, 30, tb.Remaining)
	assert.Equal(t, tb.Remaining, tb.MaxBid)
}

func TestLedgerCommitInsufficientBudgetDoesNotMutate(t *testing.T) {
	teamID := uuid.New()
	tb := newBudget(teamID, 10, 5)
	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{teamID: tb})

	// maxBid is 10 - 4 = 6.
	require.Equal(t, 6, tb.MaxBid)
	err := ledger.Commit(teamID, uuid.New(), 7)
	require.ErrorIs(t, err, ErrInsufficientBudget)

	assert.Equal(t, 0, tb.Spent)
	assert.Equal(t, 10, tb.Remaining)
	assert.Equal(t, 0, tb.FilledSpots)
	assert.Empty(t, tb.Players)
}

func TestLedgerUnknownTeam(t *testing.T) {
	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{})

	assert.False(t, ledger.CanAfford(uuid.New(), 1))
	assert.ErrorIs(t, ledger.Commit(uuid.New(), uuid.New(), 1), ErrTeamNotFound)

	_, err := ledger.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestLedgerFullRosterCannotBid(t *testing.T) {
	teamID := uuid.New()
	tb := newBudget(teamID, 100, 2)
	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{teamID: tb})

	require.NoError(t, ledger.Commit(teamID, uuid.New(), 10))
	require.NoError(t, ledger.Commit(teamID, uuid.New(), 20))

	// Money left but no open slots: the team is out of the auction.
	assert.Equal(t, 70, tb.Remaining)
	assert.Equal(t, 0, tb.MaxBid)
	assert.False(t, ledger.CanAfford(teamID, 1))
}

func TestLedgerMaxBidNeverNegative(t *testing.T) {
	teamID := uuid.New()
	tb := newBudget(teamID, 5, 10)

	// Remaining cannot cover the reserve; max bid clamps at zero.
	assert.Equal(t, 0, tb.MaxBid)

	ledger := NewLedger(map[uuid.UUID]*models.TeamBudget{teamID: tb})
	assert.False(t, ledger.CanAfford(teamID, 1))
}
