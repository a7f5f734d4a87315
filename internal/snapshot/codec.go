package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/draftworks/auctioneer/internal/models"
)

// Hash field layout, one flat entry per value:
//
//	draft_id                      uuid
//	status                        auction status
//	nominator_idx                 int
//	queue                         comma-joined team uuids, fixed order
//	nomination                    JSON, present only while a player is up
//	team:<id>:total|spent|remaining|spots|filled
//	team:<id>:players             comma-joined player uuids, win order
//	completed:<player_id>         "1"
//	autobid:<id>:enabled|default_max|increment|stop_at
//	autobid:<id>:targets          comma-joined player uuids
//	autobid:<id>:max:<player_id>  per-player ceiling

func encodeState(state *models.AuctionState) (map[string]string, error) {
	fields := map[string]string{
		"draft_id":      state.DraftID.String(),
		"status":        string(state.Status),
		"nominator_idx": strconv.Itoa(state.CurrentNominatorIdx),
		"queue":         joinIDs(state.NominationQueue),
	}

	if state.Nomination != nil {
		raw, err := json.Marshal(state.Nomination)
		if err != nil {
			return nil, fmt.Errorf("marshal nomination: %w", err)
		}
		fields["nomination"] = string(raw)
	}

	for teamID, tb := range state.TeamBudgets {
		p := "team:" + teamID.String() + ":"
		fields[p+"total"] = strconv.Itoa(tb.TotalBudget)
		fields[p+"spent"] = strconv.Itoa(tb.Spent)
		fields[p+"remaining"] = strconv.Itoa(tb.Remaining)
		fields[p+"spots"] = strconv.Itoa(tb.RosterSpots)
		fields[p+"filled"] = strconv.Itoa(tb.FilledSpots)
		if len(tb.Players) > 0 {
			fields[p+"players"] = joinIDs(tb.Players)
		}
	}

	for playerID := range state.CompletedPicks {
		fields["completed:"+playerID.String()] = "1"
	}

	for teamID, cfg := range state.AutoBidSettings {
		if cfg == nil {
			continue
		}
		p := "autobid:" + teamID.String() + ":"
		fields[p+"enabled"] = strconv.FormatBool(cfg.Enabled)
		fields[p+"default_max"] = strconv.Itoa(cfg.DefaultMaxBid)
		fields[p+"increment"] = strconv.Itoa(cfg.BidIncrement)
		fields[p+"stop_at"] = strconv.Itoa(cfg.StopAtBudget)
		if len(cfg.TargetPlayers) > 0 {
			targets := make([]uuid.UUID, 0, len(cfg.TargetPlayers))
			for id, on := range cfg.TargetPlayers {
				if on {
					targets = append(targets, id)
				}
			}
			fields[p+"targets"] = joinIDs(targets)
		}
		for playerID, amount := range cfg.MaxBidPerPlayer {
			fields[p+"max:"+playerID.String()] = strconv.Itoa(amount)
		}
	}

	return fields, nil
}

func decodeState(fields map[string]string) (*models.AuctionState, error) {
	draftID, err := uuid.Parse(fields["draft_id"])
	if err != nil {
		return nil, fmt.Errorf("parse draft_id: %w", err)
	}
	idx, err := strconv.Atoi(fields["nominator_idx"])
	if err != nil {
		return nil, fmt.Errorf("parse nominator_idx: %w", err)
	}
	queue, err := splitIDs(fields["queue"])
	if err != nil {
		return nil, fmt.Errorf("parse queue: %w", err)
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("empty nomination queue")
	}

	state := &models.AuctionState{
		DraftID:             draftID,
		Status:              models.AuctionStatus(fields["status"]),
		NominationQueue:     queue,
		CurrentNominatorIdx: idx,
		TeamBudgets:         make(map[uuid.UUID]*models.TeamBudget),
		CompletedPicks:      make(map[uuid.UUID]bool),
		AutoBidSettings:     make(map[uuid.UUID]*models.AutoBidConfig),
	}

	if raw, ok := fields["nomination"]; ok {
		var nom models.Nomination
		if err := json.Unmarshal([]byte(raw), &nom); err != nil {
			return nil, fmt.Errorf("unmarshal nomination: %w", err)
		}
		state.Nomination = &nom
	}

	for field, value := range fields {
		parts := strings.Split(field, ":")
		switch parts[0] {
		case "team":
			if len(parts) != 3 {
				return nil, fmt.Errorf("malformed team field %q", field)
			}
			teamID, err := uuid.Parse(parts[1])
			if err != nil {
				return nil, fmt.Errorf("parse team id in %q: %w", field, err)
			}
			tb := teamBudget(state, teamID)
			switch parts[2] {
			case "total":
				tb.TotalBudget, err = strconv.Atoi(value)
			case "spent":
				tb.Spent, err = strconv.Atoi(value)
			case "remaining":
				tb.Remaining, err = strconv.Atoi(value)
			case "spots":
				tb.RosterSpots, err = strconv.Atoi(value)
			case "filled":
				tb.FilledSpots, err = strconv.Atoi(value)
			case "players":
				tb.Players, err = splitIDs(value)
			default:
				err = fmt.Errorf("unknown team field %q", parts[2])
			}
			if err != nil {
				return nil, fmt.Errorf("decode %q: %w", field, err)
			}

		case "completed":
			if len(parts) != 2 {
				return nil, fmt.Errorf("malformed completed field %q", field)
			}
			playerID, err := uuid.Parse(parts[1])
			if err != nil {
				return nil, fmt.Errorf("parse player id in %q: %w", field, err)
			}
			state.CompletedPicks[playerID] = true

		case "autobid":
			if len(parts) < 3 {
				return nil, fmt.Errorf("malformed autobid field %q", field)
			}
			teamID, err := uuid.Parse(parts[1])
			if err != nil {
				return nil, fmt.Errorf("parse team id in %q: %w", field, err)
			}
			cfg := autoBidConfig(state, teamID)
			switch parts[2] {
			case "enabled":
				cfg.Enabled, err = strconv.ParseBool(value)
			case "default_max":
				cfg.DefaultMaxBid, err = strconv.Atoi(value)
			case "increment":
				cfg.BidIncrement, err = strconv.Atoi(value)
			case "stop_at":
				cfg.StopAtBudget, err = strconv.Atoi(value)
			case "targets":
				var targets []uuid.UUID
				targets, err = splitIDs(value)
				if err == nil {
					cfg.TargetPlayers = make(map[uuid.UUID]bool, len(targets))
					for _, id := range targets {
						cfg.TargetPlayers[id] = true
					}
				}
			case "max":
				if len(parts) != 4 {
					return nil, fmt.Errorf("malformed autobid max field %q", field)
				}
				var playerID uuid.UUID
				playerID, err = uuid.Parse(parts[3])
				if err == nil {
					var amount int
					amount, err = strconv.Atoi(value)
					if err == nil {
						if cfg.MaxBidPerPlayer == nil {
							cfg.MaxBidPerPlayer = make(map[uuid.UUID]int)
						}
						cfg.MaxBidPerPlayer[playerID] = amount
					}
				}
			default:
				err = fmt.Errorf("unknown autobid field %q", parts[2])
			}
			if err != nil {
				return nil, fmt.Errorf("decode %q: %w", field, err)
			}
		}
	}

	// MaxBid is derived, not stored.
	for _, tb := range state.TeamBudgets {
		tb.RecalcMaxBid()
	}
	return state, nil
}

func teamBudget(state *models.AuctionState, teamID uuid.UUID) *models.TeamBudget {
	tb, ok := state.TeamBudgets[teamID]
	if !ok {
		tb = &models.TeamBudget{TeamID: teamID}
		state.TeamBudgets[teamID] = tb
	}
	return tb
}

func autoBidConfig(state *models.AuctionState, teamID uuid.UUID) *models.AutoBidConfig {
	cfg, ok := state.AutoBidSettings[teamID]
	if !ok {
		cfg = &models.AutoBidConfig{}
		state.AutoBidSettings[teamID] = cfg
	}
	return cfg
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uuid.UUID, len(parts))
	for i, part := range parts {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
