package live

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	auction "live-auction/internal/auctionService"
	"live-auction/internal/metrics"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// chatBacklog is how many earlier chat lines a new client receives
const chatBacklog = 20

var errClientGone = errors.New("live: client went away")

// Store is the part of the realtime store a live connection needs
type Store interface {
	Subscribe(ctx context.Context, path string) (<-chan repository.Snapshot, error)
	Connect(ctx context.Context) (repository.Connection, error)
}

type Presence interface {
	Join(ctx context.Context, conn repository.Connection, roomID string, role models.Role) (string, error)
	Leave(ctx context.Context, conn repository.Connection, roomID, sessionID string) error
	WatchCount(ctx context.Context, roomID string, fn func(count int)) error
}

type Countdown interface {
	RunCountdown(ctx context.Context, roomID string, isHost bool, onTick func(secondsLeft int)) error
}

// Welcome is the first message on every live connection
type Welcome struct {
	SessionID string      `json:"session_id"`
	ViewerID  string      `json:"viewer_id,omitempty"`
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
}

// AuctionFrame is the auction state as pushed to clients
type AuctionFrame struct {
	IsActive bool  `json:"is_active"`
	EndTime  int64 `json:"end_time"`
	TimeLeft int   `json:"time_left"`
}

// Hub serves live room connections. Each connection is a store Connection, so
// its presence record goes away with it.
type Hub struct {
	store     Store
	presence  Presence
	countdown Countdown
	now       func() time.Time
}

func NewHub(store Store, presence Presence, countdown Countdown) *Hub {
	return &Hub{store: store, presence: presence, countdown: countdown, now: time.Now}
}

// Serve runs one live connection for sess until the client leaves or ctx is
// done. Viewers are registered as present for the lifetime of the socket;
// hosts additionally drive round expiry.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, sess models.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newClient(ws, sess.ID)
	roomID := sess.RoomID

	conn, err := h.store.Connect(ctx)
	if err != nil {
		ws.Close()
		return fmt.Errorf("live: failed to connect to store: %w", err)
	}
	defer conn.Close()

	metrics.LiveConnections.Inc()
	defer metrics.LiveConnections.Dec()

	isHost := sess.Role == models.RoleHost
	viewerID := ""
	if !isHost {
		viewerID, err = h.presence.Join(ctx, conn, roomID, sess.Role)
		if err != nil {
			ws.Close()
			return fmt.Errorf("live: %w", err)
		}
		defer func() {
			if err := h.presence.Leave(context.Background(), conn, roomID, viewerID); err != nil {
				utils.Warn("live: failed to leave room", map[string]any{"room_id": roomID, "viewer_id": viewerID, "error": err.Error()})
			}
		}()
	}

	utils.Info("live: client connected", map[string]any{
		"room_id":    roomID,
		"session_id": sess.ID,
		"viewer_id":  viewerID,
		"role":       sess.Role,
	})

	c.offer(Message{Type: TypeWelcome, Data: Welcome{SessionID: sess.ID, ViewerID: viewerID, UserID: sess.UserID, Role: sess.Role}})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writePump(gctx) })
	g.Go(c.readPump)
	g.Go(func() error { return h.feedPrice(gctx, c, roomID) })
	g.Go(func() error { return h.feedAuction(gctx, c, roomID) })
	g.Go(func() error { return h.feedChat(gctx, c, roomID) })
	g.Go(func() error {
		return h.presence.WatchCount(gctx, roomID, func(n int) {
			c.offer(Message{Type: TypeViewers, Data: n})
		})
	})
	g.Go(func() error {
		last := -1
		return h.countdown.RunCountdown(gctx, roomID, isHost, func(left int) {
			if left != last {
				last = left
				c.offer(Message{Type: TypeCountdown, Data: left})
			}
		})
	})

	err = g.Wait()
	utils.Info("live: client disconnected", map[string]any{"room_id": roomID, "session_id": sess.ID})
	if errors.Is(err, errClientGone) {
		return nil
	}
	return err
}

func (h *Hub) feedPrice(ctx context.Context, c *client, roomID string) error {
	feed, err := h.store.Subscribe(ctx, repository.PricePath(roomID))
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}
	for snap := range feed {
		var price int64
		if snap.Exists() {
			if err := json.Unmarshal(snap.Value, &price); err != nil {
				utils.Warn("live: unreadable price", map[string]any{"room_id": roomID, "error": err.Error()})
				continue
			}
		}
		c.offer(Message{Type: TypePrice, Data: price})
	}
	return nil
}

func (h *Hub) feedAuction(ctx context.Context, c *client, roomID string) error {
	feed, err := h.store.Subscribe(ctx, repository.AuctionPath(roomID))
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}
	for snap := range feed {
		var state models.AuctionState
		if snap.Exists() {
			if err := json.Unmarshal(snap.Value, &state); err != nil {
				utils.Warn("live: unreadable auction state", map[string]any{"room_id": roomID, "error": err.Error()})
				continue
			}
		}
		frame := AuctionFrame{IsActive: state.IsActive, TimeLeft: auction.TimeLeft(state, h.now())}
		if state.IsActive {
			frame.EndTime = state.EndTime
		}
		c.offer(Message{Type: TypeAuction, Data: frame})
	}
	return nil
}

// feedChat sends the recent backlog once, then only lines newer than the last
// one sent. Push keys sort in creation order.
func (h *Hub) feedChat(ctx context.Context, c *client, roomID string) error {
	feed, err := h.store.Subscribe(ctx, repository.ChatPath(roomID))
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}

	lastKey := ""
	first := true
	for snap := range feed {
		if !snap.Exists() {
			first = false
			continue
		}
		var lines map[string]models.ChatMessage
		if err := json.Unmarshal(snap.Value, &lines); err != nil {
			utils.Warn("live: unreadable chat", map[string]any{"room_id": roomID, "error": err.Error()})
			continue
		}
		keys := make([]string, 0, len(lines))
		for k := range lines {
			if k > lastKey {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if first && len(keys) > chatBacklog {
			keys = keys[len(keys)-chatBacklog:]
		}
		first = false
		for _, k := range keys {
			c.offer(Message{Type: TypeChat, Data: lines[k]})
			lastKey = k
		}
	}
	return nil
}
