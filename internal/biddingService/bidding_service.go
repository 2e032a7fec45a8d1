package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-auction/internal/audience"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/metrics"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

// ChatLog receives the line announcing an accepted bid
type ChatLog interface {
	PostBid(ctx context.Context, roomID, userID string, amount int64) error
}

// EventLog receives raw analytics events
type EventLog interface {
	Record(ctx context.Context, roomID string, ev models.AnalyticsEvent) error
}

// BiddingService owns a room's current price and resolves competing bids
type BiddingService struct {
	repo   repository.RealtimeDB
	dir    audience.Directory
	chat   ChatLog
	events EventLog
	now    func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.RealtimeDB, dir audience.Directory, chat ChatLog, events EventLog) *BiddingService {
	return &BiddingService{
		repo:   repo,
		dir:    dir,
		chat:   chat,
		events: events,
		now:    time.Now,
	}
}

// ReadPrice returns the room's current price, 0 when none was ever set
func (s *BiddingService) ReadPrice(ctx context.Context, roomID string) (int64, error) {
	var price int64
	if _, err := repository.GetJSON(ctx, s.repo, repository.PricePath(roomID), &price); err != nil {
		return 0, fmt.Errorf("service: failed to read price for room %s: %w", roomID, err)
	}
	return price, nil
}

// SetPrice overwrites the price. Host only, and only between rounds.
func (s *BiddingService) SetPrice(ctx context.Context, roomID, actorID string, price int64) (int64, error) {
	if price < 0 {
		return 0, fmt.Errorf("service: %w - price must be non-negative, got %d", biddingerrors.ErrInvalidPrice, price)
	}
	if err := s.requireIdleHost(ctx, roomID, actorID); err != nil {
		return 0, err
	}

	if err := repository.SetJSON(ctx, s.repo, repository.PricePath(roomID), price); err != nil {
		return 0, fmt.Errorf("service: failed to set price for room %s: %w", roomID, err)
	}

	utils.Info("service: price set", map[string]any{"room_id": roomID, "price": price})
	return price, nil
}

// StepPrice adds delta to the price, floored at zero. Host only, and only
// between rounds.
func (s *BiddingService) StepPrice(ctx context.Context, roomID, actorID string, delta int64) (int64, error) {
	if err := s.requireIdleHost(ctx, roomID, actorID); err != nil {
		return 0, err
	}

	price, err := repository.UpdateJSON(ctx, s.repo, repository.PricePath(roomID), func(cur int64, _ bool) (int64, error) {
		return max(0, cur+delta), nil
	})
	if err != nil {
		return 0, fmt.Errorf("service: failed to step price for room %s: %w", roomID, err)
	}
	return price, nil
}

// PlaceBid offers amount for the open round. The bid is accepted only if it
// beats the price committed at the moment of the write. A bid that does not
// is dropped: the outcome reports Accepted=false and no error.
func (s *BiddingService) PlaceBid(ctx context.Context, roomID, sessionID string, amount int64) (models.BidOutcome, error) {
	outcome := models.BidOutcome{RoomID: roomID, SessionID: sessionID, Amount: amount}

	bidder, round, err := s.validateBid(ctx, roomID, sessionID, amount)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrPermission) {
			metrics.BidsTotal.WithLabelValues("denied").Inc()
		}
		return outcome, err
	}

	var seen int64
	price, err := repository.UpdateJSON(ctx, s.repo, repository.PricePath(roomID), func(cur int64, _ bool) (int64, error) {
		if amount <= cur {
			seen = cur
			return cur, biddingerrors.ErrTxAborted
		}
		return amount, nil
	})
	if errors.Is(err, biddingerrors.ErrTxAborted) {
		metrics.BidsTotal.WithLabelValues("outbid").Inc()
		outcome.CurrentPrice = seen
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("service: failed to place bid in room %s: %w", roomID, err)
	}

	outcome.Accepted = true
	outcome.CurrentPrice = price
	metrics.BidsTotal.WithLabelValues("accepted").Inc()

	s.afterAccept(ctx, roomID, round, bidder, amount)
	return outcome, nil
}

// validateBid runs every check that must pass before the ledger is touched.
// It returns the bidder and the id of the open round.
func (s *BiddingService) validateBid(ctx context.Context, roomID, sessionID string, amount int64) (models.Session, string, error) {
	if roomID == "" || sessionID == "" {
		return models.Session{}, "", fmt.Errorf("service: %w - missing room or session id", biddingerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return models.Session{}, "", fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}

	sess, err := s.dir.Get(ctx, roomID, sessionID)
	if err != nil {
		return models.Session{}, "", fmt.Errorf("service: %w", err)
	}
	switch {
	case sess.Role == models.RoleHost:
		return sess, "", fmt.Errorf("service: %w", biddingerrors.ErrNotViewer)
	case sess.Restrictions.IsKicked:
		return sess, "", fmt.Errorf("service: %w", biddingerrors.ErrKicked)
	case sess.Restrictions.IsBidBanned:
		return sess, "", fmt.Errorf("service: %w", biddingerrors.ErrBidBanned)
	}

	state, err := s.auctionState(ctx, roomID)
	if err != nil {
		return sess, "", err
	}
	if !state.IsActive {
		return sess, "", fmt.Errorf("service: %w - room %s", biddingerrors.ErrAuctionIdle, roomID)
	}
	return sess, state.Round, nil
}

// afterAccept records the side effects of an accepted bid. The price is
// already committed so failures here are logged, not returned.
func (s *BiddingService) afterAccept(ctx context.Context, roomID, round string, bidder models.Session, amount int64) {
	if err := s.recordRoundBid(ctx, roomID, round, bidder.UserID, amount); err != nil {
		utils.Error("service: failed to update round bidders", map[string]any{"room_id": roomID, "error": err.Error()})
	}
	if s.chat != nil {
		if err := s.chat.PostBid(ctx, roomID, bidder.UserID, amount); err != nil {
			utils.Warn("service: failed to post bid to chat", map[string]any{"room_id": roomID, "error": err.Error()})
		}
	}
	if s.events != nil {
		ev := models.AnalyticsEvent{
			EventType: models.EventBidPlaced,
			Timestamp: s.now().UnixMilli(),
			User:      bidder.UserID,
			Amount:    amount,
		}
		if err := s.events.Record(ctx, roomID, ev); err != nil {
			utils.Warn("service: failed to record bid event", map[string]any{"room_id": roomID, "error": err.Error()})
		}
	}

	utils.Info("service: bid accepted", map[string]any{
		"room_id":    roomID,
		"session_id": bidder.ID,
		"user_id":    bidder.UserID,
		"amount":     amount,
	})
}

// recordRoundBid adds amount to the user's running total for round. An
// aggregate left by another round is replaced.
func (s *BiddingService) recordRoundBid(ctx context.Context, roomID, round, userID string, amount int64) error {
	_, err := repository.UpdateJSON(ctx, s.repo, repository.RoundBiddersPath(roomID), func(cur models.RoundBidders, _ bool) (models.RoundBidders, error) {
		if cur.Round != round {
			cur = models.RoundBidders{Round: round}
		}
		if cur.Bidders == nil {
			cur.Bidders = make(map[string]models.RoundBidder)
		}
		cur.Seq++
		b := cur.Bidders[userID]
		b.User = userID
		b.Total += amount
		b.Reached = cur.Seq
		cur.Bidders[userID] = b
		return cur, nil
	})
	return err
}

func (s *BiddingService) requireIdleHost(ctx context.Context, roomID, actorID string) error {
	actor, err := s.dir.Get(ctx, roomID, actorID)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if actor.Role != models.RoleHost {
		return fmt.Errorf("service: %w", biddingerrors.ErrNotHost)
	}

	state, err := s.auctionState(ctx, roomID)
	if err != nil {
		return err
	}
	switch {
	case state.IsActive:
		return fmt.Errorf("service: %w - price is locked while bidding is open", biddingerrors.ErrAuctionActive)
	case state.Unrecorded:
		return fmt.Errorf("service: %w - price is locked until the last round is recorded", biddingerrors.ErrAuctionClosing)
	}
	return nil
}

func (s *BiddingService) auctionState(ctx context.Context, roomID string) (models.AuctionState, error) {
	var state models.AuctionState
	if _, err := repository.GetJSON(ctx, s.repo, repository.AuctionPath(roomID), &state); err != nil {
		return state, fmt.Errorf("service: failed to read auction state for room %s: %w", roomID, err)
	}
	return state, nil
}
