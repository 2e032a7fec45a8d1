package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	auction "live-auction/internal/auctionService"
	"live-auction/internal/audience"
	bidding "live-auction/internal/biddingService"
	"live-auction/internal/chat"
	"live-auction/internal/models"
	"live-auction/internal/presence"
	"live-auction/internal/repository"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type stack struct {
	repo     *repository.MemoryRepo
	aud      *audience.AudienceService
	ledger   *bidding.BiddingService
	auctions *auction.AuctionService
	presence *presence.PresenceService
	hub      *Hub
}

func newStack() *stack {
	repo := repository.NewMemoryRepo()
	aud := audience.NewAudienceService(repo)
	chatSvc := chat.NewChatService(repo, aud)
	ledger := bidding.NewBiddingService(repo, aud, chatSvc, nil)
	auctions := auction.NewAuctionService(repo, aud, ledger, chatSvc, 30*time.Second)
	pres := presence.NewPresenceService(repo, nil)
	return &stack{
		repo:     repo,
		aud:      aud,
		ledger:   ledger,
		auctions: auctions,
		presence: pres,
		hub:      NewHub(repo, pres, auctions),
	}
}

// dial serves sess over a test server and returns the client side
func dial(t *testing.T, s *stack, sess models.Session) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = s.hub.Serve(r.Context(), ws, sess)
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return ws
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// await reads frames until match accepts one
func await(t *testing.T, ws *websocket.Conn, match func(f frame) bool) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if match(f) {
			return f
		}
	}
}

func TestHub_ViewerPresenceAndFeeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack()

	host, err := s.aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "1000000000", Role: models.RoleHost})
	require.NoError(t, err)
	viewer, err := s.aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "2000000000", Role: models.RoleAudience})
	require.NoError(t, err)

	ws := dial(t, s, viewer)

	welcome := await(t, ws, func(f frame) bool { return f.Type == TypeWelcome })
	var w Welcome
	require.NoError(t, json.Unmarshal(welcome.Data, &w))
	require.Equal(t, viewer.ID, w.SessionID)
	require.NotEmpty(t, w.ViewerID)

	await(t, ws, func(f frame) bool { return f.Type == TypeViewers && string(f.Data) == "1" })

	_, err = s.ledger.SetPrice(ctx, "room1", host.ID, 120)
	require.NoError(t, err)
	await(t, ws, func(f frame) bool { return f.Type == TypePrice && string(f.Data) == "120" })

	_, err = s.auctions.Start(ctx, "room1", host.ID, auction.StartOptions{ItemName: "Lamp"})
	require.NoError(t, err)
	await(t, ws, func(f frame) bool {
		var a AuctionFrame
		return f.Type == TypeAuction && json.Unmarshal(f.Data, &a) == nil && a.IsActive && a.TimeLeft > 0
	})
	await(t, ws, func(f frame) bool { return f.Type == TypeChat && strings.Contains(string(f.Data), "AUCTION STARTED") })

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool {
		n, err := s.presence.Count(ctx, "room1")
		return err == nil && n == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHub_HostExpiresRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStack()

	host, err := s.aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "1000000000", Role: models.RoleHost})
	require.NoError(t, err)

	ws := dial(t, s, host)
	defer ws.Close()

	welcome := await(t, ws, func(f frame) bool { return f.Type == TypeWelcome })
	var w Welcome
	require.NoError(t, json.Unmarshal(welcome.Data, &w))
	require.Empty(t, w.ViewerID, "hosts are not counted as viewers")

	_, err = s.auctions.Start(ctx, "room1", host.ID, auction.StartOptions{DurationSeconds: 1})
	require.NoError(t, err)

	await(t, ws, func(f frame) bool { return f.Type == TypeCountdown && string(f.Data) == "0" })
	require.Eventually(t, func() bool {
		history, err := s.auctions.History(ctx, "room1")
		return err == nil && len(history) == 1
	}, 5*time.Second, 20*time.Millisecond)

	state, err := s.auctions.State(ctx, "room1")
	require.NoError(t, err)
	require.False(t, state.IsActive)

	n, err := s.presence.Count(ctx, "room1")
	require.NoError(t, err)
	require.Zero(t, n)
}
