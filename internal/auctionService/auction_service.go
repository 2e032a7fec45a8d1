package auction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"live-auction/internal/audience"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/metrics"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"

	"github.com/goccy/go-json"
)

// TickInterval is how often a countdown observer recomputes the time left
const TickInterval = 100 * time.Millisecond

// PriceLedger is the part of the bid ledger a round needs
type PriceLedger interface {
	ReadPrice(ctx context.Context, roomID string) (int64, error)
	SetPrice(ctx context.Context, roomID, actorID string, price int64) (int64, error)
}

// Announcer posts system lines to the room chat
type Announcer interface {
	Announce(ctx context.Context, roomID, text string) error
}

// StartOptions configures a new round. Zero DurationSeconds uses the service
// default. A nil SeedPrice keeps whatever price the ledger holds.
type StartOptions struct {
	DurationSeconds int
	SeedPrice       *int64
	ItemName        string
}

// ToggleResult reports which way a toggle went. Record is set when a round
// was closed.
type ToggleResult struct {
	State  models.AuctionState
	Record *models.AuctionHistoryRecord
}

// AuctionService drives the Idle/Active cycle of a room
type AuctionService struct {
	repo     repository.RealtimeDB
	dir      audience.Directory
	ledger   PriceLedger
	chat     Announcer
	duration time.Duration
	now      func() time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.RealtimeDB, dir audience.Directory, ledger PriceLedger, chat Announcer, defaultDuration time.Duration) *AuctionService {
	return &AuctionService{
		repo:     repo,
		dir:      dir,
		ledger:   ledger,
		chat:     chat,
		duration: defaultDuration,
		now:      time.Now,
	}
}

// Start opens a round under a fresh round id. It fails with ErrAuctionActive,
// writing nothing, when a round is already open. A previous round left
// unrecorded is recorded first.
func (s *AuctionService) Start(ctx context.Context, roomID, actorID string, opts StartOptions) (models.AuctionState, error) {
	if err := s.requireHost(ctx, roomID, actorID); err != nil {
		return models.AuctionState{}, err
	}
	duration := s.duration
	switch {
	case opts.DurationSeconds < 0:
		return models.AuctionState{}, fmt.Errorf("auction: %w - negative duration", biddingerrors.ErrInvalidInput)
	case opts.DurationSeconds > 0:
		duration = time.Duration(opts.DurationSeconds) * time.Second
	}

	current, err := s.rawState(ctx, roomID)
	if err != nil {
		return models.AuctionState{}, err
	}
	if current.IsActive {
		return models.AuctionState{IsActive: true, EndTime: current.EndTime}, fmt.Errorf("auction: %w - room %s", biddingerrors.ErrAuctionActive, roomID)
	}
	if current.Unrecorded {
		if _, err := s.finalize(ctx, roomID, current); err != nil && !errors.Is(err, biddingerrors.ErrAuctionIdle) {
			return models.AuctionState{}, err
		}
	}

	if opts.SeedPrice != nil {
		if _, err := s.ledger.SetPrice(ctx, roomID, actorID, *opts.SeedPrice); err != nil {
			return models.AuctionState{}, fmt.Errorf("auction: failed to seed price: %w", err)
		}
	}

	// bids are aggregated under the round id, so the previous round's
	// bidders never count towards this one
	round := utils.GeneratePushKey()
	endTime := s.now().Add(duration).UnixMilli()
	state, err := repository.UpdateJSON(ctx, s.repo, repository.AuctionPath(roomID), func(cur models.AuctionState, _ bool) (models.AuctionState, error) {
		switch {
		case cur.IsActive:
			return cur, biddingerrors.ErrAuctionActive
		case cur.Unrecorded:
			return cur, biddingerrors.ErrAuctionClosing
		}
		return models.AuctionState{IsActive: true, EndTime: endTime, Round: round}, nil
	})
	if errors.Is(err, biddingerrors.ErrState) {
		return models.AuctionState{}, fmt.Errorf("auction: %w - room %s", err, roomID)
	}
	if err != nil {
		return models.AuctionState{}, fmt.Errorf("auction: failed to start room %s: %w", roomID, err)
	}

	if name := strings.TrimSpace(opts.ItemName); name != "" {
		if err := repository.SetJSON(ctx, s.repo, repository.ItemPath(roomID), name); err != nil {
			utils.Warn("auction: failed to set item", map[string]any{"room_id": roomID, "error": err.Error()})
		}
	}

	price, err := s.ledger.ReadPrice(ctx, roomID)
	if err != nil {
		utils.Warn("auction: failed to read opening price", map[string]any{"room_id": roomID, "error": err.Error()})
	}
	s.announce(ctx, roomID, fmt.Sprintf("🚨 AUCTION STARTED AT ₹%d!", price))

	utils.Info("auction: round started", map[string]any{
		"room_id":  roomID,
		"end_time": state.EndTime,
		"price":    price,
	})
	return state, nil
}

// Stop closes the open round on behalf of the host
func (s *AuctionService) Stop(ctx context.Context, roomID, actorID string) (*models.AuctionHistoryRecord, error) {
	if err := s.requireHost(ctx, roomID, actorID); err != nil {
		return nil, err
	}
	return s.close(ctx, roomID, false)
}

// Expire closes the open round if its end time has passed. Any observer may
// call it.
func (s *AuctionService) Expire(ctx context.Context, roomID string) (*models.AuctionHistoryRecord, error) {
	return s.close(ctx, roomID, true)
}

// Toggle stops an open round or starts a new one
func (s *AuctionService) Toggle(ctx context.Context, roomID, actorID string, opts StartOptions) (ToggleResult, error) {
	current, err := s.State(ctx, roomID)
	if err != nil {
		return ToggleResult{}, err
	}
	if current.IsActive {
		record, err := s.Stop(ctx, roomID, actorID)
		if err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{State: models.AuctionState{}, Record: record}, nil
	}

	state, err := s.Start(ctx, roomID, actorID, opts)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{State: state}, nil
}

// close flips Active to Idle and records the round. The transition leaves
// the state marked Unrecorded until the history record exists, so a caller
// that finds a closed but unrecorded round finishes the job. Of any number of
// racing callers exactly one creates the record and returns it; the rest get
// ErrAuctionIdle.
func (s *AuctionService) close(ctx context.Context, roomID string, onlyIfExpired bool) (*models.AuctionHistoryRecord, error) {
	now := s.now().UnixMilli()
	var pending models.AuctionState
	closed, err := repository.UpdateJSON(ctx, s.repo, repository.AuctionPath(roomID), func(cur models.AuctionState, _ bool) (models.AuctionState, error) {
		if !cur.IsActive {
			if cur.Unrecorded {
				pending = cur
				return cur, biddingerrors.ErrTxAborted
			}
			return cur, biddingerrors.ErrAuctionIdle
		}
		if onlyIfExpired && now < cur.EndTime {
			return cur, biddingerrors.ErrNotExpired
		}
		round := cur.Round
		if round == "" {
			round = utils.GeneratePushKey()
		}
		return models.AuctionState{Round: round, Unrecorded: true}, nil
	})
	switch {
	case errors.Is(err, biddingerrors.ErrTxAborted):
		closed = pending
	case errors.Is(err, biddingerrors.ErrState):
		return nil, fmt.Errorf("auction: %w - room %s", err, roomID)
	case err != nil:
		return nil, fmt.Errorf("auction: failed to close room %s: %w", roomID, err)
	}

	record, err := s.finalize(ctx, roomID, closed)
	if err != nil {
		return nil, err
	}

	outcome := "unsold"
	if record.Sold() {
		outcome = "sold"
	}
	metrics.RoundsClosed.WithLabelValues(outcome).Inc()

	utils.Info("auction: round closed", map[string]any{
		"room_id":     roomID,
		"item":        record.ItemName,
		"final_price": record.FinalPrice,
		"winner":      record.Winner,
	})
	return record, nil
}

// finalize writes the history record of the closed round, keyed by its round
// id so it is created at most once. A caller that finds the record already
// written finishes the cleanup but gets ErrAuctionIdle.
func (s *AuctionService) finalize(ctx context.Context, roomID string, closed models.AuctionState) (*models.AuctionHistoryRecord, error) {
	price, err := s.ledger.ReadPrice(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("auction: failed to read final price: %w", err)
	}

	var round models.RoundBidders
	if _, err := repository.GetJSON(ctx, s.repo, repository.RoundBiddersPath(roomID), &round); err != nil {
		return nil, fmt.Errorf("auction: failed to read round bidders: %w", err)
	}
	if round.Round != closed.Round {
		round = models.RoundBidders{}
	}

	itemName, err := s.CurrentItem(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if itemName == "" {
		n, err := s.repo.Count(ctx, repository.HistoryPath(roomID))
		if err != nil {
			return nil, fmt.Errorf("auction: failed to count history: %w", err)
		}
		itemName = fmt.Sprintf("Item %d", n+1)
	}

	top := RankBidders(round, models.TopBidderLimit)
	record := &models.AuctionHistoryRecord{
		ItemName:   itemName,
		FinalPrice: price,
		Winner:     models.NoWinner,
		TopBidders: top,
		Timestamp:  s.now().UnixMilli(),
	}
	if len(top) > 0 {
		record.Winner = top[0].User
	}

	_, err = repository.UpdateJSON(ctx, s.repo, repository.HistoryRecordPath(roomID, closed.Round), func(cur models.AuctionHistoryRecord, exists bool) (models.AuctionHistoryRecord, error) {
		if exists {
			return cur, biddingerrors.ErrTxAborted
		}
		return *record, nil
	})
	created := err == nil
	if err != nil && !errors.Is(err, biddingerrors.ErrTxAborted) {
		return nil, fmt.Errorf("auction: failed to append history for room %s: %w", roomID, err)
	}

	// no round can open while the marker is set, so clearing round data is
	// safe until it is gone
	if created || s.unrecorded(ctx, roomID, closed.Round) {
		for _, p := range []string{repository.RoundBiddersPath(roomID), repository.ItemPath(roomID)} {
			if err := s.repo.Remove(ctx, p); err != nil {
				utils.Warn("auction: failed to clear round data", map[string]any{"room_id": roomID, "path": p, "error": err.Error()})
			}
		}
	}
	_, err = repository.UpdateJSON(ctx, s.repo, repository.AuctionPath(roomID), func(cur models.AuctionState, _ bool) (models.AuctionState, error) {
		if cur.IsActive || !cur.Unrecorded || cur.Round != closed.Round {
			return cur, biddingerrors.ErrTxAborted
		}
		cur.Unrecorded = false
		return cur, nil
	})
	if err != nil && !errors.Is(err, biddingerrors.ErrTxAborted) {
		utils.Warn("auction: failed to mark round recorded", map[string]any{"room_id": roomID, "round": closed.Round, "error": err.Error()})
	}

	if !created {
		return nil, fmt.Errorf("auction: %w - room %s", biddingerrors.ErrAuctionIdle, roomID)
	}
	s.announce(ctx, roomID, fmt.Sprintf("🛑 SOLD FOR ₹%d", price))
	return record, nil
}

// unrecorded reports whether round is still marked closed but unrecorded
func (s *AuctionService) unrecorded(ctx context.Context, roomID, round string) bool {
	state, err := s.rawState(ctx, roomID)
	return err == nil && !state.IsActive && state.Unrecorded && state.Round == round
}

// RankBidders orders a round's bidders by total, highest first. Equal totals
// keep the order in which they were reached.
func RankBidders(round models.RoundBidders, limit int) []models.Bidder {
	bidders := make([]models.RoundBidder, 0, len(round.Bidders))
	for _, b := range round.Bidders {
		bidders = append(bidders, b)
	}
	sort.Slice(bidders, func(i, j int) bool {
		if bidders[i].Total != bidders[j].Total {
			return bidders[i].Total > bidders[j].Total
		}
		return bidders[i].Reached < bidders[j].Reached
	})
	if limit > 0 && len(bidders) > limit {
		bidders = bidders[:limit]
	}

	out := make([]models.Bidder, 0, len(bidders))
	for _, b := range bidders {
		out = append(out, models.Bidder{User: b.User, Amount: b.Total})
	}
	return out
}

// State returns the room's auction state. EndTime and Round are zeroed when
// idle.
func (s *AuctionService) State(ctx context.Context, roomID string) (models.AuctionState, error) {
	state, err := s.rawState(ctx, roomID)
	if err != nil {
		return state, err
	}
	if !state.IsActive {
		state.EndTime = 0
		state.Round = ""
	}
	return state, nil
}

func (s *AuctionService) rawState(ctx context.Context, roomID string) (models.AuctionState, error) {
	var state models.AuctionState
	if _, err := repository.GetJSON(ctx, s.repo, repository.AuctionPath(roomID), &state); err != nil {
		return state, fmt.Errorf("auction: failed to read state for room %s: %w", roomID, err)
	}
	return state, nil
}

// History returns the room's closed rounds, oldest first
func (s *AuctionService) History(ctx context.Context, roomID string) ([]models.AuctionHistoryRecord, error) {
	_, records, err := repository.ChildrenJSON[models.AuctionHistoryRecord](ctx, s.repo, repository.HistoryPath(roomID))
	if err != nil {
		return nil, fmt.Errorf("auction: failed to read history for room %s: %w", roomID, err)
	}
	return records, nil
}

// ShowcaseItem names the item the next round sells. Host only, between rounds.
func (s *AuctionService) ShowcaseItem(ctx context.Context, roomID, actorID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("auction: %w - empty item name", biddingerrors.ErrInvalidInput)
	}
	if err := s.requireHost(ctx, roomID, actorID); err != nil {
		return err
	}
	state, err := s.State(ctx, roomID)
	if err != nil {
		return err
	}
	switch {
	case state.IsActive:
		return fmt.Errorf("auction: %w - cannot change item mid-round", biddingerrors.ErrAuctionActive)
	case state.Unrecorded:
		return fmt.Errorf("auction: %w - room %s", biddingerrors.ErrAuctionClosing, roomID)
	}
	if err := repository.SetJSON(ctx, s.repo, repository.ItemPath(roomID), name); err != nil {
		return fmt.Errorf("auction: failed to set item: %w", err)
	}
	return nil
}

// CurrentItem returns the showcased item name, empty when none
func (s *AuctionService) CurrentItem(ctx context.Context, roomID string) (string, error) {
	var name string
	if _, err := repository.GetJSON(ctx, s.repo, repository.ItemPath(roomID), &name); err != nil {
		return "", fmt.Errorf("auction: failed to read item for room %s: %w", roomID, err)
	}
	return name, nil
}

// TimeLeft returns the whole seconds until state ends, rounded up, never
// negative. An idle state has none left.
func TimeLeft(state models.AuctionState, now time.Time) int {
	if !state.IsActive {
		return 0
	}
	ms := state.EndTime - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

// RunCountdown follows the room's auction state and calls onTick with the
// seconds left every TickInterval while a round is open. A host observer
// closes the round once it reaches zero. It returns when ctx is done.
//
// Nothing else closes an expired round: with no host observing, the round
// stays open until a host connects or stops it.
func (s *AuctionService) RunCountdown(ctx context.Context, roomID string, isHost bool, onTick func(secondsLeft int)) error {
	feed, err := s.repo.Subscribe(ctx, repository.AuctionPath(roomID))
	if err != nil {
		return fmt.Errorf("auction: failed to watch room %s: %w", roomID, err)
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	var state models.AuctionState
	fired := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-feed:
			if !ok {
				return nil
			}
			state = models.AuctionState{}
			if snap.Exists() {
				if err := json.Unmarshal(snap.Value, &state); err != nil {
					utils.Warn("auction: unreadable state", map[string]any{"room_id": roomID, "error": err.Error()})
				}
			}
			fired = false
		case <-ticker.C:
		}

		if !state.IsActive {
			// a host also finishes recording a round whose close failed midway
			if state.Unrecorded && isHost && !fired {
				fired = s.tryExpire(ctx, roomID)
			}
			continue
		}
		left := TimeLeft(state, s.now())
		if onTick != nil {
			onTick(left)
		}
		if left == 0 && isHost && !fired {
			fired = s.tryExpire(ctx, roomID)
		}
	}
}

// tryExpire calls Expire and reports whether the round is settled. It is
// false after a store failure, which the next tick retries.
func (s *AuctionService) tryExpire(ctx context.Context, roomID string) bool {
	_, err := s.Expire(ctx, roomID)
	if err == nil || errors.Is(err, biddingerrors.ErrState) || ctx.Err() != nil {
		return true
	}
	utils.Error("auction: failed to expire round", map[string]any{"room_id": roomID, "error": err.Error()})
	return false
}

func (s *AuctionService) requireHost(ctx context.Context, roomID, actorID string) error {
	actor, err := s.dir.Get(ctx, roomID, actorID)
	if err != nil {
		return fmt.Errorf("auction: %w", err)
	}
	if actor.Role != models.RoleHost {
		return fmt.Errorf("auction: %w", biddingerrors.ErrNotHost)
	}
	return nil
}

func (s *AuctionService) announce(ctx context.Context, roomID, text string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.Announce(ctx, roomID, text); err != nil {
		utils.Warn("auction: failed to announce", map[string]any{"room_id": roomID, "error": err.Error()})
	}
}
