package auction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftworks/auctioneer/internal/models"
)

type managerFixture struct {
	clock   fakeClock
	snaps   *memSnapshotStore
	picks   *memPickStore
	catalog *memCatalog
	events  *captureBroadcaster
	mgr     *Manager
}

func newManagerFixture(t *testing.T, players []models.Player) *managerFixture {
	t.Helper()
	f := &managerFixture{
		clock:   clockwork.NewFakeClock(),
		snaps:   newMemSnapshotStore(),
		catalog: newMemCatalog(players),
		events:  &captureBroadcaster{},
	}
	f.picks = newMemPickStore(f.catalog)
	f.mgr = NewManager(Deps{
		Snapshots: f.snaps,
		Picks:     f.picks,
		Players:   f.catalog,
		Broadcast: f.events,
	}, DefaultConfig(), f.clock)
	t.Cleanup(f.mgr.Shutdown)
	return f
}

func waitForManagerEvents(t *testing.T, events *captureBroadcaster, eventType EventType, n int) []Event {
	t.Helper()
	require.Eventuallyf(t, func() bool {
		return len(events.ofType(eventType)) >= n
	}, 2*time.Second, 5*time.Millisecond, "expected %d %s events", n, eventType)
	return events.ofType(eventType)
}

func TestManagerInitializeAuction(t *testing.T) {
	players := testPlayers(5)
	f := newManagerFixture(t, players)
	ctx := context.Background()
	draftID := uuid.New()
	teams := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	require.NoError(t, f.mgr.InitializeAuction(ctx, draftID, teams, 200, 16))

	budgets, err := f.mgr.GetAllBudgets(ctx, draftID)
	require.NoError(t, err)
	require.Len(t, budgets, 3)
	for _, teamID := range teams {
		tb := budgets[teamID]
		require.NotNil(t, tb)
		assert.Equal(t, 200, tb.TotalBudget)
		assert.Equal(t, 200, tb.Remaining)
		assert.Equal(t, 185, tb.MaxBid)
		assert.Zero(t, tb.FilledSpots)
	}

	// The nomination order is a shuffle of the teams, not an invention.
	snapshot, err := f.snaps.Load(ctx, draftID)
	require.NoError(t, err)
	assert.ElementsMatch(t, teams, snapshot.NominationQueue)

	err = f.mgr.InitializeAuction(ctx, draftID, teams, 200, 16)
	require.ErrorContains(t, err, "already initialized")
}

func TestManagerInitializeValidation(t *testing.T) {
	f := newManagerFixture(t, testPlayers(3))
	ctx := context.Background()
	teamA := uuid.New()

	err := f.mgr.InitializeAuction(ctx, uuid.New(), nil, 200, 16)
	require.ErrorContains(t, err, "at least one team")

	err = f.mgr.InitializeAuction(ctx, uuid.New(), []uuid.UUID{teamA}, 200, 0)
	require.ErrorContains(t, err, "roster_spots")

	err = f.mgr.InitializeAuction(ctx, uuid.New(), []uuid.UUID{teamA}, 10, 16)
	require.ErrorContains(t, err, "budget_per_team")

	err = f.mgr.InitializeAuction(ctx, uuid.New(), []uuid.UUID{teamA, teamA}, 200, 16)
	require.ErrorContains(t, err, "duplicate team")
}

func TestManagerUnknownDraft(t *testing.T) {
	f := newManagerFixture(t, testPlayers(3))

	_, err := f.mgr.GetAllBudgets(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAuctionStateNotFound)
}

func TestManagerDetectsStateDivergence(t *testing.T) {
	f := newManagerFixture(t, testPlayers(3))
	draftID := uuid.New()

	// The pick store says the draft is live, but no snapshot survives.
	f.picks.mu.Lock()
	f.picks.active[draftID] = true
	f.picks.mu.Unlock()

	_, err := f.mgr.GetAllBudgets(context.Background(), draftID)
	require.ErrorIs(t, err, ErrStateDiverged)
}

func TestManagerRecoversDraftFromSnapshot(t *testing.T) {
	players := testPlayers(5)
	f := newManagerFixture(t, players)
	ctx := context.Background()
	draftID := uuid.New()
	teams := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	require.NoError(t, f.mgr.InitializeAuction(ctx, draftID, teams, 200, 16))

	// The nomination order was shuffled, so probe for whoever is up.
	var nominator uuid.UUID
	for _, teamID := range teams {
		err := f.mgr.Nominate(ctx, draftID, teamID, players[0].ID, 1)
		if err == nil {
			nominator = teamID
			break
		}
		require.ErrorIs(t, err, ErrNotYourTurn)
	}
	require.NotEqual(t, uuid.Nil, nominator)

	var bidder uuid.UUID
	for _, teamID := range teams {
		if teamID != nominator {
			bidder = teamID
			break
		}
	}
	require.NoError(t, f.mgr.PlaceBid(ctx, draftID, bidder, 5))

	f.mgr.Shutdown()

	// A fresh manager over the same stores picks the draft back up on
	// first touch, with the live nomination intact.
	restored := NewManager(Deps{
		Snapshots: f.snaps,
		Picks:     f.picks,
		Players:   f.catalog,
		Broadcast: f.events,
	}, DefaultConfig(), f.clock)
	t.Cleanup(restored.Shutdown)

	tb, err := restored.GetTeamBudget(ctx, draftID, bidder)
	require.NoError(t, err)
	assert.Equal(t, 200, tb.Remaining, "no sale has resolved yet")

	// The restored countdown runs out and the sale lands.
	f.clock.Advance(10 * time.Second)
	sold := waitForManagerEvents(t, f.events, EventTypePlayerSold, 1)
	payload := decodePayload[PlayerSoldPayload](t, sold[0])
	assert.Equal(t, bidder.String(), payload.TeamID)
	assert.Equal(t, 5, payload.Amount)

	picks := f.picks.recorded(draftID)
	require.Len(t, picks, 1)
	assert.Equal(t, pickRecord{TeamID: bidder, PlayerID: players[0].ID, Amount: 5}, picks[0])

	tb, err = restored.GetTeamBudget(ctx, draftID, bidder)
	require.NoError(t, err)
	assert.Equal(t, 5, tb.Spent)
	assert.Equal(t, 1, tb.FilledSpots)
}

func TestManagerCancelRemovesDraft(t *testing.T) {
	f := newManagerFixture(t, testPlayers(3))
	ctx := context.Background()
	draftID := uuid.New()
	teams := []uuid.UUID{uuid.New(), uuid.New()}

	require.NoError(t, f.mgr.InitializeAuction(ctx, draftID, teams, 200, 16))
	require.NoError(t, f.mgr.CancelAuction(ctx, draftID))

	assert.False(t, f.snaps.has(draftID))
	_, err := f.mgr.GetAllBudgets(ctx, draftID)
	require.ErrorIs(t, err, ErrAuctionStateNotFound)
}
