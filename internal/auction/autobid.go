package auction

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/draftworks/auctioneer/internal/models"
)

// AutoBidDecision is a proxy bid the coordinator should submit on a
// team's behalf after the jitter delay elapses.
type AutoBidDecision struct {
	TeamID uuid.UUID
	Amount int
	Delay  time.Duration
}

// evaluateAutoBids inspects every enabled proxy-bid config against the
// active nomination and returns the bids to schedule. It runs only after
// human-submitted nominations and bids: an accepted auto-bid does not
// provoke other teams' agents. That mirrors the shipped product behavior;
// whether auto-vs-auto escalation should exist is a product decision, not
// something to change here quietly.
//
// Delays are jittered so agents for different teams do not land in the
// same instant and the countdown reads naturally to human observers.
func evaluateAutoBids(state *models.AuctionState, ledger *Ledger, rng *rand.Rand, minDelay, maxDelay time.Duration) []AutoBidDecision {
	nom := state.Nomination
	if nom == nil {
		return nil
	}

	var decisions []AutoBidDecision
	for teamID, cfg := range state.AutoBidSettings {
		if cfg == nil || !cfg.Enabled {
			continue
		}
		if teamID == nom.CurrentBidder {
			continue
		}
		if !cfg.Targets(nom.PlayerID) {
			continue
		}

		nextBid := nom.CurrentBid + cfg.BidIncrement
		if nextBid > cfg.MaxBidFor(nom.PlayerID) {
			continue
		}

		tb, err := ledger.Get(teamID)
		if err != nil {
			continue
		}
		if nextBid > tb.MaxBid {
			continue
		}
		// Equal remaining budget still bids; only strictly below the
		// floor disengages the agent.
		if tb.Remaining < cfg.StopAtBudget {
			continue
		}

		decisions = append(decisions, AutoBidDecision{
			TeamID: teamID,
			Amount: nextBid,
			Delay:  jitter(rng, minDelay, maxDelay),
		})
	}
	return decisions
}

func jitter(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}
