package auction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies an auction event on the wire.
type EventType string

const (
	EventTypePlayerNominated EventType = "player-nominated"
	EventTypeBidUpdate       EventType = "bid-update"
	EventTypePlayerSold      EventType = "player-sold"
	EventTypeDraftComplete   EventType = "draft-complete"
	EventTypeAuctionPaused   EventType = "auction-paused"
	EventTypeAuctionResumed  EventType = "auction-resumed"
)

// Event is the envelope wrapped around every broadcast payload.
type Event struct {
	ID        string          `json:"id"`
	DraftID   string          `json:"draft_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// PlayerNominatedPayload announces a new nomination and its countdown.
type PlayerNominatedPayload struct {
	PlayerID        string `json:"player_id"`
	NominatorTeamID string `json:"nominator_team_id"`
	OpeningBid      int    `json:"opening_bid"`
	TimerSeconds    int    `json:"timer_seconds"`
}

// BidUpdatePayload announces an accepted raise and the refreshed window.
type BidUpdatePayload struct {
	PlayerID         string `json:"player_id"`
	CurrentBid       int    `json:"current_bid"`
	CurrentBidder    string `json:"current_bidder"`
	TimeRemainingSec int    `json:"time_remaining_sec"`
	AutoBid          bool   `json:"auto_bid"`
}

// TeamBudgetSummary is the winner's budget after a sale.
type TeamBudgetSummary struct {
	Remaining   int `json:"remaining"`
	MaxBid      int `json:"max_bid"`
	FilledSpots int `json:"filled_spots"`
}

// PlayerSoldPayload announces a resolved nomination.
type PlayerSoldPayload struct {
	PlayerID   string            `json:"player_id"`
	TeamID     string            `json:"team_id"`
	Amount     int               `json:"amount"`
	TeamBudget TeamBudgetSummary `json:"team_budget"`
}

// DraftCompletePayload announces the end of the draft.
type DraftCompletePayload struct {
	CompletedAt time.Time `json:"completed_at"`
}

// AuctionPausedPayload announces an administrative pause.
type AuctionPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason,omitempty"`
}

// AuctionResumedPayload announces that bidding may continue.
type AuctionResumedPayload struct {
	ResumedAt time.Time `json:"resumed_at"`
}

// NewEvent wraps a payload in the broadcast envelope.
func NewEvent(draftID uuid.UUID, eventType EventType, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		DraftID:   draftID.String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}
