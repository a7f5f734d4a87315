package auction

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/models"
)

// Manager is the single entry point to the auction core. It owns one
// coordinator per active draft; drafts are fully independent and run in
// parallel. There is no implicit global registry: state exists only
// between InitializeAuction and completion or teardown, with snapshot
// recovery as the only path to resurrecting a draft after a restart.
type Manager struct {
	cfg   Config
	deps  Deps
	clock clockwork.Clock

	mu     sync.Mutex
	drafts map[uuid.UUID]*Coordinator
}

// NewManager builds a Manager over its external collaborators.
func NewManager(deps Deps, cfg Config, clock clockwork.Clock) *Manager {
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		clock:  clock,
		drafts: make(map[uuid.UUID]*Coordinator),
	}
}

// InitializeAuction seeds budgets, randomizes the nomination order and
// puts the first team on the clock.
func (m *Manager) InitializeAuction(ctx context.Context, draftID uuid.UUID, teamIDs []uuid.UUID, budgetPerTeam, rosterSpots int) error {
	if len(teamIDs) == 0 {
		return fmt.Errorf("at least one team is required")
	}
	if rosterSpots < 1 {
		return fmt.Errorf("roster_spots must be at least 1")
	}
	if budgetPerTeam < rosterSpots {
		return fmt.Errorf("budget_per_team must cover at least $1 per roster spot")
	}

	budgets := make(map[uuid.UUID]*models.TeamBudget, len(teamIDs))
	for _, teamID := range teamIDs {
		if _, dup := budgets[teamID]; dup {
			return fmt.Errorf("duplicate team %s", teamID)
		}
		tb := &models.TeamBudget{
			TeamID:      teamID,
			TotalBudget: budgetPerTeam,
			Remaining:   budgetPerTeam,
			RosterSpots: rosterSpots,
		}
		tb.RecalcMaxBid()
		budgets[teamID] = tb
	}

	queue := append([]uuid.UUID(nil), teamIDs...)
	rand.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })

	state := &models.AuctionState{
		DraftID:         draftID,
		Status:          models.AuctionStatusInProgress,
		TeamBudgets:     budgets,
		NominationQueue: queue,
		CompletedPicks:  make(map[uuid.UUID]bool),
		AutoBidSettings: make(map[uuid.UUID]*models.AutoBidConfig),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.drafts[draftID]; exists {
		return fmt.Errorf("auction already initialized for draft %s", draftID)
	}

	if err := m.deps.Snapshots.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist initial snapshot: %w", err)
	}

	c := newCoordinator(state, m.cfg, m.deps, m.clock, m.remove)
	m.drafts[draftID] = c
	c.start()

	log.Info().
		Str("draft_id", draftID.String()).
		Int("teams", len(teamIDs)).
		Int("budget_per_team", budgetPerTeam).
		Int("roster_spots", rosterSpots).
		Msg("auction initialized")
	return nil
}

// Nominate puts a player up for bid.
func (m *Manager) Nominate(ctx context.Context, draftID, teamID, playerID uuid.UUID, openingBid int) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.Nominate(ctx, teamID, playerID, openingBid)
}

// PlaceBid applies a bid on the draft's active nomination.
func (m *Manager) PlaceBid(ctx context.Context, draftID, teamID uuid.UUID, amount int) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.PlaceBid(ctx, teamID, amount)
}

// SetAutoBidConfig replaces a team's proxy-bid instruction.
func (m *Manager) SetAutoBidConfig(ctx context.Context, draftID, teamID uuid.UUID, cfg models.AutoBidConfig) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.SetAutoBidConfig(ctx, teamID, cfg)
}

// GetTeamBudget returns a consistent copy of one team's budget.
func (m *Manager) GetTeamBudget(ctx context.Context, draftID, teamID uuid.UUID) (*models.TeamBudget, error) {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return c.TeamBudget(ctx, teamID)
}

// GetAllBudgets returns consistent copies of every team's budget.
func (m *Manager) GetAllBudgets(ctx context.Context, draftID uuid.UUID) (map[uuid.UUID]*models.TeamBudget, error) {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return c.AllBudgets(ctx)
}

// PauseAuction suspends a draft between operations.
func (m *Manager) PauseAuction(ctx context.Context, draftID uuid.UUID, reason string) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.Pause(ctx, reason)
}

// ResumeAuction restarts a paused draft.
func (m *Manager) ResumeAuction(ctx context.Context, draftID uuid.UUID) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.Resume(ctx)
}

// CancelAuction tears a draft down without completing it.
func (m *Manager) CancelAuction(ctx context.Context, draftID uuid.UUID) error {
	c, err := m.coordinator(ctx, draftID)
	if err != nil {
		return err
	}
	return c.Cancel(ctx)
}

// Shutdown stops every draft worker, leaving snapshots in place for
// recovery on the next start.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	coordinators := make([]*Coordinator, 0, len(m.drafts))
	for _, c := range m.drafts {
		coordinators = append(coordinators, c)
	}
	m.drafts = make(map[uuid.UUID]*Coordinator)
	m.mu.Unlock()

	for _, c := range coordinators {
		c.stop()
	}
}

// coordinator returns the live coordinator for a draft, restoring it from
// the snapshot store on first touch after a process start.
func (m *Manager) coordinator(ctx context.Context, draftID uuid.UUID) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.drafts[draftID]; ok {
		return c, nil
	}

	state, err := m.deps.Snapshots.Load(ctx, draftID)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			active, activeErr := m.deps.Picks.DraftActive(ctx, draftID)
			if activeErr != nil {
				return nil, fmt.Errorf("failed to check draft activity: %w", activeErr)
			}
			if active {
				// The pick store says the draft is running but no snapshot
				// survives. Resolving the budget/roster discrepancy either
				// way could be wrong, so nothing is rebuilt here.
				log.Error().
					Str("draft_id", draftID.String()).
					Msg("no snapshot for draft still marked active; operator intervention required")
				return nil, ErrStateDiverged
			}
			return nil, ErrAuctionStateNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	c := newCoordinator(state, m.cfg, m.deps, m.clock, m.remove)
	m.drafts[draftID] = c
	c.start()

	log.Info().Str("draft_id", draftID.String()).Msg("auction state restored from snapshot")
	return c, nil
}

func (m *Manager) remove(draftID uuid.UUID) {
	m.mu.Lock()
	delete(m.drafts, draftID)
	m.mu.Unlock()
}
