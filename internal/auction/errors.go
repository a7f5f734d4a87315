package auction

import "errors"

// Validation errors reported to the calling client. None of them leave the
// auction state mutated.
var (
	// ErrNotYourTurn is returned when a team nominates out of order.
	ErrNotYourTurn = errors.New("not your turn to nominate")

	// ErrPlayerAlreadyDrafted is returned when a nomination targets a
	// player that has already been sold in this draft.
	ErrPlayerAlreadyDrafted = errors.New("player already drafted")

	// ErrAuctionAlreadyActive is returned when a nomination arrives while
	// another player is still up for bid.
	ErrAuctionAlreadyActive = errors.New("auction already active")

	// ErrNoActiveAuction is returned when a bid arrives with no player up
	// for bid.
	ErrNoActiveAuction = errors.New("no active auction")

	// ErrBidTooLow is returned when a bid does not strictly raise the
	// current bid. Ties are rejected outright.
	ErrBidTooLow = errors.New("bid too low")

	// ErrInsufficientBudget is returned when an amount exceeds the team's
	// max legal bid.
	ErrInsufficientBudget = errors.New("insufficient budget")

	// ErrAuctionStateNotFound is returned when an operation references a
	// draft with no initialized or recoverable state.
	ErrAuctionStateNotFound = errors.New("auction state not found")

	// ErrAuctionPaused is returned for bids and nominations while the
	// draft is administratively paused.
	ErrAuctionPaused = errors.New("auction is paused")

	// ErrTeamNotFound is returned when a team ID has no budget entry in
	// this draft.
	ErrTeamNotFound = errors.New("team not found in draft")

	// ErrSnapshotNotFound is returned by snapshot stores when no record
	// exists for a draft.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrStateDiverged is returned when no snapshot can be restored for a
	// draft the durable pick store still marks active. Requires operator
	// intervention; never auto-resolved.
	ErrStateDiverged = errors.New("auction state diverged from pick records")
)
