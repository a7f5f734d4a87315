// Package commands exposes the auction manager's inbound operations over
// NATS request/reply.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/auction"
	"github.com/draftworks/auctioneer/internal/models"
)

const (
	subjectInitialize = "auction.cmd.initialize"
	subjectNominate   = "auction.cmd.nominate"
	subjectPlaceBid   = "auction.cmd.place-bid"
	subjectSetAutoBid = "auction.cmd.set-auto-bid"
	subjectPause      = "auction.cmd.pause"
	subjectResume     = "auction.cmd.resume"
	subjectCancel     = "auction.cmd.cancel"
	subjectGetBudget  = "auction.cmd.get-budget"
	subjectGetBudgets = "auction.cmd.get-budgets"

	handleTimeout = 10 * time.Second
)

// InitializeRequest starts a new auction draft.
type InitializeRequest struct {
	DraftID       uuid.UUID   `json:"draft_id"`
	TeamIDs       []uuid.UUID `json:"team_ids"`
	BudgetPerTeam int         `json:"budget_per_team"`
	RosterSpots   int         `json:"roster_spots"`
}

// NominateRequest puts a player up for bid.
type NominateRequest struct {
	DraftID    uuid.UUID `json:"draft_id"`
	TeamID     uuid.UUID `json:"team_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	OpeningBid int       `json:"opening_bid"`
}

// PlaceBidRequest raises the current bid.
type PlaceBidRequest struct {
	DraftID uuid.UUID `json:"draft_id"`
	TeamID  uuid.UUID `json:"team_id"`
	Amount  int       `json:"amount"`
}

// SetAutoBidRequest replaces a team's proxy-bid config.
type SetAutoBidRequest struct {
	DraftID uuid.UUID            `json:"draft_id"`
	TeamID  uuid.UUID            `json:"team_id"`
	Config  models.AutoBidConfig `json:"config"`
}

// DraftRequest addresses a draft with no further arguments.
type DraftRequest struct {
	DraftID uuid.UUID `json:"draft_id"`
	TeamID  uuid.UUID `json:"team_id,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Reply is the uniform response envelope.
type Reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Consumer routes auction.cmd.* messages to the manager.
type Consumer struct {
	nc      *nats.Conn
	manager *auction.Manager
	subs    []*nats.Subscription
}

// NewConsumer builds a consumer over an existing connection.
func NewConsumer(nc *nats.Conn, manager *auction.Manager) *Consumer {
	return &Consumer{nc: nc, manager: manager}
}

// Start subscribes to every command subject.
func (c *Consumer) Start() error {
	handlers := map[string]func(context.Context, []byte) (any, error){
		subjectInitialize: c.handleInitialize,
		subjectNominate:   c.handleNominate,
		subjectPlaceBid:   c.handlePlaceBid,
		subjectSetAutoBid: c.handleSetAutoBid,
		subjectPause:      c.handlePause,
		subjectResume:     c.handleResume,
		subjectCancel:     c.handleCancel,
		subjectGetBudget:  c.handleGetBudget,
		subjectGetBudgets: c.handleGetBudgets,
	}

	for subject, handler := range handlers {
		sub, err := c.nc.Subscribe(subject, c.wrap(subject, handler))
		if err != nil {
			c.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}

	log.Info().Int("subjects", len(c.subs)).Msg("auction command consumer started")
	return nil
}

// Stop drains all subscriptions.
func (c *Consumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Error().Err(err).Str("subject", sub.Subject).Msg("failed to drain subscription")
		}
	}
	c.subs = nil
}

func (c *Consumer) wrap(subject string, handler func(context.Context, []byte) (any, error)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		result, err := handler(ctx, msg.Data)
		reply := Reply{OK: err == nil}
		if err != nil {
			reply.Error = err.Error()
			log.Debug().Err(err).Str("subject", subject).Msg("command rejected")
		} else if result != nil {
			data, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				reply = Reply{OK: false, Error: marshalErr.Error()}
			} else {
				reply.Data = data
			}
		}

		if msg.Reply == "" {
			return
		}
		raw, err := json.Marshal(reply)
		if err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to marshal reply")
			return
		}
		if err := msg.Respond(raw); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to respond")
		}
	}
}

func (c *Consumer) handleInitialize(ctx context.Context, data []byte) (any, error) {
	var req InitializeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal initialize request: %w", err)
	}
	return nil, c.manager.InitializeAuction(ctx, req.DraftID, req.TeamIDs, req.BudgetPerTeam, req.RosterSpots)
}

func (c *Consumer) handleNominate(ctx context.Context, data []byte) (any, error) {
	var req NominateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal nominate request: %w", err)
	}
	return nil, c.manager.Nominate(ctx, req.DraftID, req.TeamID, req.PlayerID, req.OpeningBid)
}

func (c *Consumer) handlePlaceBid(ctx context.Context, data []byte) (any, error) {
	var req PlaceBidRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal place-bid request: %w", err)
	}
	return nil, c.manager.PlaceBid(ctx, req.DraftID, req.TeamID, req.Amount)
}

func (c *Consumer) handleSetAutoBid(ctx context.Context, data []byte) (any, error) {
	var req SetAutoBidRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal set-auto-bid request: %w", err)
	}
	return nil, c.manager.SetAutoBidConfig(ctx, req.DraftID, req.TeamID, req.Config)
}

func (c *Consumer) handlePause(ctx context.Context, data []byte) (any, error) {
	var req DraftRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal pause request: %w", err)
	}
	return nil, c.manager.PauseAuction(ctx, req.DraftID, req.Reason)
}

func (c *Consumer) handleResume(ctx context.Context, data []byte) (any, error) {
	var req DraftRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal resume request: %w", err)
	}
	return nil, c.manager.ResumeAuction(ctx, req.DraftID)
}

func (c *Consumer) handleCancel(ctx context.Context, data []byte) (any, error) {
	var req DraftRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal cancel request: %w", err)
	}
	return nil, c.manager.CancelAuction(ctx, req.DraftID)
}

func (c *Consumer) handleGetBudget(ctx context.Context, data []byte) (any, error) {
	var req DraftRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal get-budget request: %w", err)
	}
	return c.manager.GetTeamBudget(ctx, req.DraftID, req.TeamID)
}

func (c *Consumer) handleGetBudgets(ctx context.Context, data []byte) (any, error) {
	var req DraftRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal get-budgets request: %w", err)
	}
	return c.manager.GetAllBudgets(ctx, req.DraftID)
}
