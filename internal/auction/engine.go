package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/draftworks/auctioneer/internal/models"
)

// Engine is the bidding state machine for one draft. It moves between two
// states: Idle (no nomination) and Open (a nomination with a running
// countdown). It validates and applies mutations but owns no timers and
// emits no events; the coordinator drives both around it.
type Engine struct {
	state  *models.AuctionState
	ledger *Ledger
	sched  *Scheduler
	clock  clockwork.Clock

	bidWindow time.Duration // countdown restarted on every accepted bid
}

// NewEngine builds the state machine over an auction state.
func NewEngine(state *models.AuctionState, ledger *Ledger, sched *Scheduler, clock clockwork.Clock, bidWindow time.Duration) *Engine {
	return &Engine{
		state:     state,
		ledger:    ledger,
		sched:     sched,
		clock:     clock,
		bidWindow: bidWindow,
	}
}

// Open reports whether a nomination is currently active.
func (e *Engine) Open() bool {
	return e.state.Nomination != nil
}

// Nominate puts a player up for bid with an opening bid and transitions
// Idle -> Open. The opening bid is recorded as the first entry of the bid
// history.
func (e *Engine) Nominate(teamID, playerID uuid.UUID, openingBid int, autoBid bool) (*models.Nomination, error) {
	if e.Open() {
		return nil, ErrAuctionAlreadyActive
	}
	if err := e.sched.ValidateNominator(teamID); err != nil {
		return nil, err
	}
	if e.state.CompletedPicks[playerID] {
		return nil, ErrPlayerAlreadyDrafted
	}
	if openingBid < 1 {
		return nil, ErrBidTooLow
	}
	if !e.ledger.CanAfford(teamID, openingBid) {
		return nil, ErrInsufficientBudget
	}

	now := e.clock.Now()
	nom := &models.Nomination{
		PlayerID:      playerID,
		NominatorID:   teamID,
		CurrentBid:    openingBid,
		CurrentBidder: teamID,
		BidHistory: []models.Bid{{
			TeamID:   teamID,
			Amount:   openingBid,
			PlacedAt: now,
			AutoBid:  autoBid,
		}},
		ExpiresAt: now.Add(e.bidWindow),
	}
	e.state.Nomination = nom
	return nom, nil
}

// PlaceBid applies a strict raise on the active nomination and restarts
// its countdown window.
func (e *Engine) PlaceBid(teamID uuid.UUID, amount int, autoBid bool) (*models.Nomination, error) {
	nom := e.state.Nomination
	if nom == nil {
		return nil, ErrNoActiveAuction
	}
	if amount <= nom.CurrentBid {
		return nil, ErrBidTooLow
	}
	if !e.ledger.CanAfford(teamID, amount) {
		return nil, ErrInsufficientBudget
	}

	now := e.clock.Now()
	nom.BidHistory = append(nom.BidHistory, models.Bid{
		TeamID:   teamID,
		Amount:   amount,
		PlacedAt: now,
		AutoBid:  autoBid,
	})
	nom.CurrentBid = amount
	nom.CurrentBidder = teamID
	nom.ExpiresAt = now.Add(e.bidWindow)
	return nom, nil
}

// SaleResult describes a resolved nomination.
type SaleResult struct {
	PlayerID uuid.UUID
	TeamID   uuid.UUID
	Amount   int
	Budget   *models.TeamBudget
	// DraftComplete is set when this sale filled the last open roster slot
	// across all teams.
	DraftComplete bool
}

// CompleteAuction resolves the active nomination: commits the winning bid
// to the ledger, marks the player drafted, advances the nomination order
// and transitions Open -> Idle.
func (e *Engine) CompleteAuction() (*SaleResult, error) {
	nom := e.state.Nomination
	if nom == nil {
		return nil, ErrNoActiveAuction
	}

	if err := e.ledger.Commit(nom.CurrentBidder, nom.PlayerID, nom.CurrentBid); err != nil {
		return nil, err
	}
	e.state.CompletedPicks[nom.PlayerID] = true
	e.state.Nomination = nil
	e.sched.Advance()

	budget, err := e.ledger.Get(nom.CurrentBidder)
	if err != nil {
		return nil, err
	}
	return &SaleResult{
		PlayerID:      nom.PlayerID,
		TeamID:        nom.CurrentBidder,
		Amount:        nom.CurrentBid,
		Budget:        budget,
		DraftComplete: e.state.AllRostersFull(),
	}, nil
}
