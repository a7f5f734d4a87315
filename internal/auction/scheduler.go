package auction

import (
	"github.com/google/uuid"

	"github.com/draftworks/auctioneer/internal/models"
)

// Scheduler enforces the fixed round-robin nomination order. Teams with a
// full roster are not skipped; when their nomination window expires the
// coordinator nominates on their behalf, which keeps the cycle stable
// instead of shrinking it.
type Scheduler struct {
	state *models.AuctionState
}

// NewScheduler wraps the state's nomination queue.
func NewScheduler(state *models.AuctionState) *Scheduler {
	return &Scheduler{state: state}
}

// CurrentNominator returns the team whose turn it is to nominate.
func (s *Scheduler) CurrentNominator() uuid.UUID {
	return s.state.NominationQueue[s.state.CurrentNominatorIdx]
}

// ValidateNominator checks turn order for an inbound nomination.
func (s *Scheduler) ValidateNominator(teamID uuid.UUID) error {
	if s.CurrentNominator() != teamID {
		return ErrNotYourTurn
	}
	return nil
}

// Advance moves to the next nominator, cyclically. The queue composition
// never changes after initialization.
func (s *Scheduler) Advance() {
	s.state.CurrentNominatorIdx = (s.state.CurrentNominatorIdx + 1) % len(s.state.NominationQueue)
}
