package auction

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/models"
)

// SnapshotStore is the durable snapshot collaborator used for crash
// recovery. It is written after every mutation and read exactly once,
// lazily, on first touch of a draft after process start.
type SnapshotStore interface {
	Save(ctx context.Context, state *models.AuctionState) error
	Load(ctx context.Context, draftID uuid.UUID) (*models.AuctionState, error)
	Delete(ctx context.Context, draftID uuid.UUID) error
}

// PickRecorder is the durable store of finalized picks.
type PickRecorder interface {
	RecordPick(ctx context.Context, draftID, teamID, playerID uuid.UUID, amount int) error
	// DraftActive reports whether the durable store still marks the draft
	// as running; used to detect state divergence during recovery.
	DraftActive(ctx context.Context, draftID uuid.UUID) (bool, error)
}

// PlayerCatalog is the read-only player eligibility collaborator.
type PlayerCatalog interface {
	PlayerByID(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	IsAvailable(ctx context.Context, draftID, playerID uuid.UUID) (bool, error)
	// TopAvailable lists undrafted players by ascending ADP.
	TopAvailable(ctx context.Context, draftID uuid.UUID, limit int) ([]models.Player, error)
}

// Broadcaster fans auction events out to spectators.
type Broadcaster interface {
	Broadcast(ctx context.Context, draftID uuid.UUID, event Event) error
}

// Deps bundles the external collaborators of the auction core.
type Deps struct {
	Snapshots SnapshotStore
	Picks     PickRecorder
	Players   PlayerCatalog
	Broadcast Broadcaster
}

// Config holds the fixed timing parameters of the auction.
type Config struct {
	BidWindow        time.Duration // countdown restarted on every accepted bid
	NominationWindow time.Duration // time a team has to nominate
	AutoBidMinDelay  time.Duration
	AutoBidMaxDelay  time.Duration
	// NominationPoolSize is how many of the top available players (by
	// ascending ADP) an expired nomination samples from.
	NominationPoolSize int
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		BidWindow:          10 * time.Second,
		NominationWindow:   30 * time.Second,
		AutoBidMinDelay:    500 * time.Millisecond,
		AutoBidMaxDelay:    1500 * time.Millisecond,
		NominationPoolSize: 10,
	}
}

// op is one unit of work on the coordinator queue. errCh is nil for
// timer-originated work that has no caller to answer.
type op struct {
	fn    func() error
	errCh chan error
}

// Coordinator owns one draft's AuctionState. Every mutation and read goes
// through its ops queue and is applied by a single worker goroutine, so
// at most one mutation is in flight per draft at any instant. Timer
// callbacks enqueue onto the same queue and carry a generation number so
// a timer that was cancelled but had already fired cannot double-apply.
type Coordinator struct {
	draftID uuid.UUID
	cfg     Config
	deps    Deps
	clock   clockwork.Clock
	rng     *rand.Rand

	state  *models.AuctionState
	ledger *Ledger
	sched  *Scheduler
	engine *Engine

	ops  chan op
	quit chan struct{}
	done chan struct{}

	bidGen   uint64
	nomGen   uint64
	bidTimer clockwork.Timer
	nomTimer clockwork.Timer

	// onComplete tells the owner to drop this draft from its registry.
	onComplete func(draftID uuid.UUID)
}

func newCoordinator(state *models.AuctionState, cfg Config, deps Deps, clock clockwork.Clock, onComplete func(uuid.UUID)) *Coordinator {
	ledger := NewLedger(state.TeamBudgets)
	sched := NewScheduler(state)
	c := &Coordinator{
		draftID:    state.DraftID,
		cfg:        cfg,
		deps:       deps,
		clock:      clock,
		rng:        rand.New(rand.NewSource(clock.Now().UnixNano())),
		state:      state,
		ledger:     ledger,
		sched:      sched,
		engine:     NewEngine(state, ledger, sched, clock, cfg.BidWindow),
		ops:        make(chan op, 128),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		onComplete: onComplete,
	}
	return c
}

// start launches the worker and arms whatever timer the restored state
// calls for: the remaining bid countdown for an open nomination, or a
// fresh nomination window otherwise. Paused drafts get no timers.
func (c *Coordinator) start() {
	go c.run()
	c.enqueueAsync(func() error {
		if c.state.Status != models.AuctionStatusInProgress {
			return nil
		}
		if nom := c.state.Nomination; nom != nil {
			remaining := nom.ExpiresAt.Sub(c.clock.Now())
			if remaining < 0 {
				remaining = 0
			}
			c.armBidTimer(remaining)
		} else {
			c.armNominationTimer(c.cfg.NominationWindow)
		}
		return nil
	})
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		// Teardown wins over queued work: nothing may run against a
		// completed or cancelled draft.
		select {
		case <-c.quit:
			return
		default:
		}
		select {
		case o := <-c.ops:
			err := o.fn()
			if o.errCh != nil {
				o.errCh <- err
			}
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the worker and waits for its result.
func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	o := op{fn: fn, errCh: make(chan error, 1)}
	select {
	case c.ops <- o:
	case <-c.quit:
		return ErrAuctionStateNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-o.errCh:
		return err
	case <-c.quit:
		// Worker shut down before the op ran.
		select {
		case err := <-o.errCh:
			return err
		default:
			return ErrAuctionStateNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueAsync queues timer-originated work that has no caller waiting.
func (c *Coordinator) enqueueAsync(fn func() error) {
	select {
	case c.ops <- op{fn: fn}:
	case <-c.quit:
	}
}

// stop halts the worker without tearing down state; the snapshot remains
// for recovery. Used at process shutdown.
func (c *Coordinator) stop() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	<-c.done
	c.stopTimers()
}

// Nominate puts a player up for bid on behalf of a team.
func (c *Coordinator) Nominate(ctx context.Context, teamID, playerID uuid.UUID, openingBid int) error {
	return c.do(ctx, func() error {
		return c.nominate(teamID, playerID, openingBid, false)
	})
}

// PlaceBid applies a human bid on the active nomination.
func (c *Coordinator) PlaceBid(ctx context.Context, teamID uuid.UUID, amount int) error {
	return c.do(ctx, func() error {
		return c.placeBid(teamID, amount, false)
	})
}

// SetAutoBidConfig replaces a team's proxy-bid instruction.
func (c *Coordinator) SetAutoBidConfig(ctx context.Context, teamID uuid.UUID, cfg models.AutoBidConfig) error {
	return c.do(ctx, func() error {
		if _, err := c.ledger.Get(teamID); err != nil {
			return err
		}
		c.state.AutoBidSettings[teamID] = &cfg
		c.persist(false)
		return nil
	})
}

// TeamBudget returns a copy of one team's budget, read on the worker so
// it observes a consistent state.
func (c *Coordinator) TeamBudget(ctx context.Context, teamID uuid.UUID) (*models.TeamBudget, error) {
	var out *models.TeamBudget
	err := c.do(ctx, func() error {
		tb, err := c.ledger.Get(teamID)
		if err != nil {
			return err
		}
		out = copyBudget(tb)
		return nil
	})
	return out, err
}

// AllBudgets returns copies of every team's budget.
func (c *Coordinator) AllBudgets(ctx context.Context) (map[uuid.UUID]*models.TeamBudget, error) {
	out := make(map[uuid.UUID]*models.TeamBudget)
	err := c.do(ctx, func() error {
		for id, tb := range c.state.TeamBudgets {
			out[id] = copyBudget(tb)
		}
		return nil
	})
	return out, err
}

// Pause suspends the draft between operations: timers are disarmed and
// new bids and nominations are rejected until Resume.
func (c *Coordinator) Pause(ctx context.Context, reason string) error {
	return c.do(ctx, func() error {
		if c.state.Status != models.AuctionStatusInProgress {
			return nil
		}
		c.state.Status = models.AuctionStatusPaused
		c.stopTimers()
		c.persist(false)
		c.broadcast(EventTypeAuctionPaused, AuctionPausedPayload{
			PausedAt: c.clock.Now(),
			Reason:   reason,
		})
		log.Info().Str("draft_id", c.draftID.String()).Str("reason", reason).Msg("auction paused")
		return nil
	})
}

// Resume restarts a paused draft with a fresh timer window.
func (c *Coordinator) Resume(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.state.Status != models.AuctionStatusPaused {
			return nil
		}
		c.state.Status = models.AuctionStatusInProgress
		if nom := c.state.Nomination; nom != nil {
			nom.ExpiresAt = c.clock.Now().Add(c.cfg.BidWindow)
			c.armBidTimer(c.cfg.BidWindow)
		} else {
			c.armNominationTimer(c.cfg.NominationWindow)
		}
		c.persist(false)
		c.broadcast(EventTypeAuctionResumed, AuctionResumedPayload{ResumedAt: c.clock.Now()})
		log.Info().Str("draft_id", c.draftID.String()).Msg("auction resumed")
		return nil
	})
}

// Cancel tears the draft down without completing it. The snapshot is
// deleted; pick records already written stay as they are.
func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.state.Status = models.AuctionStatusCancelled
		if err := c.deps.Snapshots.Delete(context.Background(), c.draftID); err != nil {
			log.Error().Err(err).Str("draft_id", c.draftID.String()).Msg("failed to delete snapshot on cancel")
		}
		log.Info().Str("draft_id", c.draftID.String()).Msg("auction cancelled")
		c.teardown()
		return nil
	})
}

func (c *Coordinator) nominate(teamID, playerID uuid.UUID, openingBid int, auto bool) error {
	if c.state.Status == models.AuctionStatusPaused {
		return ErrAuctionPaused
	}
	if c.engine.Open() {
		return ErrAuctionAlreadyActive
	}
	if err := c.sched.ValidateNominator(teamID); err != nil {
		return err
	}

	available, err := c.deps.Players.IsAvailable(context.Background(), c.draftID, playerID)
	if err != nil {
		log.Error().Err(err).Str("draft_id", c.draftID.String()).Str("player_id", playerID.String()).Msg("player availability lookup failed")
		return err
	}
	if !available {
		return ErrPlayerAlreadyDrafted
	}

	nom, err := c.engine.Nominate(teamID, playerID, openingBid, auto)
	if err != nil {
		return err
	}

	c.disarmNominationTimer()
	c.armBidTimer(c.cfg.BidWindow)
	c.persist(false)
	c.broadcast(EventTypePlayerNominated, PlayerNominatedPayload{
		PlayerID:        nom.PlayerID.String(),
		NominatorTeamID: nom.NominatorID.String(),
		OpeningBid:      nom.CurrentBid,
		TimerSeconds:    int(c.cfg.BidWindow / time.Second),
	})
	log.Info().
		Str("draft_id", c.draftID.String()).
		Str("team_id", teamID.String()).
		Str("player_id", playerID.String()).
		Int("opening_bid", openingBid).
		Bool("auto", auto).
		Msg("player nominated")

	if !auto {
		c.scheduleAutoBids()
	}
	return nil
}

func (c *Coordinator) placeBid(teamID uuid.UUID, amount int, auto bool) error {
	if c.state.Status == models.AuctionStatusPaused {
		return ErrAuctionPaused
	}

	nom, err := c.engine.PlaceBid(teamID, amount, auto)
	if err != nil {
		return err
	}

	c.armBidTimer(c.cfg.BidWindow)
	c.persist(false)
	c.broadcast(EventTypeBidUpdate, BidUpdatePayload{
		PlayerID:         nom.PlayerID.String(),
		CurrentBid:       nom.CurrentBid,
		CurrentBidder:    nom.CurrentBidder.String(),
		TimeRemainingSec: int(c.cfg.BidWindow / time.Second),
		AutoBid:          auto,
	})
	log.Info().
		Str("draft_id", c.draftID.String()).
		Str("team_id", teamID.String()).
		Int("amount", amount).
		Bool("auto", auto).
		Msg("bid accepted")

	if !auto {
		c.scheduleAutoBids()
	}
	return nil
}

// handleBidExpiry resolves the countdown for generation gen. Stale
// generations are fenced out: an accepted bid re-arms the timer under a
// new generation before any old firing can reach the queue.
func (c *Coordinator) handleBidExpiry(gen uint64) error {
	if gen != c.bidGen || c.state.Nomination == nil || c.state.Status != models.AuctionStatusInProgress {
		log.Debug().Str("draft_id", c.draftID.String()).Uint64("gen", gen).Msg("stale bid timer ignored")
		return nil
	}

	res, err := c.engine.CompleteAuction()
	if err != nil {
		// Commit cannot legally fail under serialized processing; if it
		// does, the nomination stays open for operator inspection.
		log.Error().Err(err).Str("draft_id", c.draftID.String()).Msg("auction completion failed; operator intervention required")
		return err
	}

	if err := c.deps.Picks.RecordPick(context.Background(), c.draftID, res.TeamID, res.PlayerID, res.Amount); err != nil {
		log.Error().Err(err).
			Str("draft_id", c.draftID.String()).
			Str("player_id", res.PlayerID.String()).
			Msg("failed to record pick for committed sale; operator intervention required")
	}

	c.broadcast(EventTypePlayerSold, PlayerSoldPayload{
		PlayerID: res.PlayerID.String(),
		TeamID:   res.TeamID.String(),
		Amount:   res.Amount,
		TeamBudget: TeamBudgetSummary{
			Remaining:   res.Budget.Remaining,
			MaxBid:      res.Budget.MaxBid,
			FilledSpots: res.Budget.FilledSpots,
		},
	})
	log.Info().
		Str("draft_id", c.draftID.String()).
		Str("player_id", res.PlayerID.String()).
		Str("team_id", res.TeamID.String()).
		Int("amount", res.Amount).
		Msg("player sold")

	if res.DraftComplete {
		c.finalize()
		return nil
	}

	c.persist(true)
	c.armNominationTimer(c.cfg.NominationWindow)
	return nil
}

// handleNominationExpiry nominates on behalf of a team that let its
// window lapse: a pseudo-random player from the top of the available pool
// by ascending ADP, at an opening bid of $1.
func (c *Coordinator) handleNominationExpiry(gen uint64) error {
	if gen != c.nomGen || c.state.Nomination != nil || c.state.Status != models.AuctionStatusInProgress {
		log.Debug().Str("draft_id", c.draftID.String()).Uint64("gen", gen).Msg("stale nomination timer ignored")
		return nil
	}

	nominator := c.sched.CurrentNominator()
	playerID, err := c.sampleNominationPool()
	if err != nil {
		log.Error().Err(err).Str("draft_id", c.draftID.String()).Msg("auto-nomination pool lookup failed")
		c.armNominationTimer(c.cfg.NominationWindow)
		return err
	}

	if err := c.nominate(nominator, playerID, 1, true); err != nil {
		// A team that cannot open at $1 forfeits the turn; the order
		// stays fixed and the next team goes on the clock.
		log.Warn().Err(err).
			Str("draft_id", c.draftID.String()).
			Str("team_id", nominator.String()).
			Msg("auto-nomination rejected; passing turn")
		c.sched.Advance()
		c.persist(false)
		c.armNominationTimer(c.cfg.NominationWindow)
		return nil
	}
	return nil
}

func (c *Coordinator) sampleNominationPool() (uuid.UUID, error) {
	pool, err := c.deps.Players.TopAvailable(context.Background(), c.draftID, c.cfg.NominationPoolSize)
	if err != nil {
		return uuid.Nil, err
	}
	candidates := pool[:0]
	for _, p := range pool {
		if !c.state.CompletedPicks[p.ID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return uuid.Nil, ErrPlayerAlreadyDrafted
	}
	return candidates[c.rng.Intn(len(candidates))].ID, nil
}

// scheduleAutoBids evaluates every proxy agent against the current
// nomination and queues the resulting bids behind their jitter delays.
// Each queued bid is re-validated when it reaches the worker, so an agent
// that was outpaced in the meantime simply gets rejected.
func (c *Coordinator) scheduleAutoBids() {
	decisions := evaluateAutoBids(c.state, c.ledger, c.rng, c.cfg.AutoBidMinDelay, c.cfg.AutoBidMaxDelay)
	for _, d := range decisions {
		teamID, amount := d.TeamID, d.Amount
		c.clock.AfterFunc(d.Delay, func() {
			c.enqueueAsync(func() error {
				err := c.placeBid(teamID, amount, true)
				if err != nil {
					log.Debug().Err(err).
						Str("draft_id", c.draftID.String()).
						Str("team_id", teamID.String()).
						Int("amount", amount).
						Msg("auto-bid rejected")
				}
				return err
			})
		})
	}
}

func (c *Coordinator) finalize() {
	c.state.Status = models.AuctionStatusCompleted
	c.broadcast(EventTypeDraftComplete, DraftCompletePayload{CompletedAt: c.clock.Now()})
	if err := c.deps.Snapshots.Delete(context.Background(), c.draftID); err != nil {
		log.Error().Err(err).Str("draft_id", c.draftID.String()).Msg("failed to delete snapshot for completed draft")
	}
	log.Info().Str("draft_id", c.draftID.String()).Msg("draft complete")
	c.teardown()
}

// teardown stops timers, deregisters the draft and shuts the worker down
// after the current op finishes.
func (c *Coordinator) teardown() {
	c.stopTimers()
	if c.onComplete != nil {
		c.onComplete(c.draftID)
	}
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
}

func (c *Coordinator) armBidTimer(d time.Duration) {
	if c.bidTimer != nil {
		c.bidTimer.Stop()
	}
	c.bidGen++
	gen := c.bidGen
	c.bidTimer = c.clock.AfterFunc(d, func() {
		c.enqueueAsync(func() error { return c.handleBidExpiry(gen) })
	})
}

func (c *Coordinator) armNominationTimer(d time.Duration) {
	if c.nomTimer != nil {
		c.nomTimer.Stop()
	}
	c.nomGen++
	gen := c.nomGen
	c.nomTimer = c.clock.AfterFunc(d, func() {
		c.enqueueAsync(func() error { return c.handleNominationExpiry(gen) })
	})
}

func (c *Coordinator) disarmNominationTimer() {
	if c.nomTimer != nil {
		c.nomTimer.Stop()
	}
	c.nomGen++
}

func (c *Coordinator) stopTimers() {
	if c.bidTimer != nil {
		c.bidTimer.Stop()
	}
	if c.nomTimer != nil {
		c.nomTimer.Stop()
	}
	c.bidGen++
	c.nomGen++
}

// persist writes the snapshot after a mutation. afterSale marks writes
// that follow a committed sale, where a lost snapshot risks losing a
// paid-for pick on crash; those failures must be surfaced loudly.
func (c *Coordinator) persist(afterSale bool) {
	if err := c.deps.Snapshots.Save(context.Background(), c.state); err != nil {
		ev := log.Error().Err(err).Str("draft_id", c.draftID.String())
		if afterSale {
			ev.Msg("snapshot persist failed after committed sale; operator intervention required")
			return
		}
		ev.Msg("snapshot persist failed")
	}
}

func (c *Coordinator) broadcast(eventType EventType, payload any) {
	event, err := NewEvent(c.draftID, eventType, c.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("draft_id", c.draftID.String()).Msg("failed to build event")
		return
	}
	if err := c.deps.Broadcast.Broadcast(context.Background(), c.draftID, event); err != nil {
		log.Error().Err(err).
			Str("draft_id", c.draftID.String()).
			Str("event_type", string(eventType)).
			Msg("failed to broadcast event")
	}
}

func copyBudget(tb *models.TeamBudget) *models.TeamBudget {
	out := *tb
	out.Players = append([]uuid.UUID(nil), tb.Players...)
	return &out
}
