package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"live-auction/internal/audience"
	bidding "live-auction/internal/biddingService"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/chat"
	"live-auction/internal/models"
	"live-auction/internal/repository"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   repository.RealtimeDB
	ledger *bidding.BiddingService
	chat   *chat.ChatService
	svc    *AuctionService
	host   models.Session
	alice  models.Session
	bob    models.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, repository.NewMemoryRepo())
}

func newFixtureOn(t *testing.T, repo repository.RealtimeDB) *fixture {
	t.Helper()
	ctx := context.Background()

	aud := audience.NewAudienceService(repo)
	chatSvc := chat.NewChatService(repo, aud)
	ledger := bidding.NewBiddingService(repo, aud, chatSvc, nil)

	f := &fixture{
		repo:   repo,
		ledger: ledger,
		chat:   chatSvc,
		svc:    NewAuctionService(repo, aud, ledger, chatSvc, 30*time.Second),
	}

	var err error
	f.host, err = aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "1000000000", Role: models.RoleHost})
	require.NoError(t, err)
	f.alice, err = aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "2000000000", Role: models.RoleAudience})
	require.NoError(t, err)
	f.bob, err = aud.Register(ctx, "room1", audience.RegisterRequest{Phone: "3000000000", Role: models.RoleAudience})
	require.NoError(t, err)
	return f
}

func seed(p int64) *int64 { return &p }

func TestAuctionService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	before := time.Now()
	state, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(100), ItemName: "Lamp"})
	require.NoError(t, err)
	require.True(t, state.IsActive)
	require.GreaterOrEqual(t, state.EndTime, before.Add(30*time.Second).UnixMilli())

	_, err = f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionActive))

	for _, bid := range []struct {
		session string
		amount  int64
	}{{f.alice.ID, 150}, {f.bob.ID, 200}, {f.alice.ID, 250}} {
		outcome, err := f.ledger.PlaceBid(ctx, "room1", bid.session, bid.amount)
		require.NoError(t, err)
		require.True(t, outcome.Accepted)
	}

	record, err := f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)
	require.Equal(t, "Lamp", record.ItemName)
	require.Equal(t, int64(250), record.FinalPrice)
	require.Equal(t, f.alice.UserID, record.Winner)
	require.Equal(t, []models.Bidder{
		{User: f.alice.UserID, Amount: 400},
		{User: f.bob.UserID, Amount: 200},
	}, record.TopBidders)

	state, err = f.svc.State(ctx, "room1")
	require.NoError(t, err)
	require.Equal(t, models.AuctionState{}, state)

	history, err := f.svc.History(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, *record, history[0])

	item, err := f.svc.CurrentItem(ctx, "room1")
	require.NoError(t, err)
	require.Empty(t, item)

	msgs, err := f.chat.Recent(ctx, "room1", 0)
	require.NoError(t, err)
	require.Equal(t, "🚨 AUCTION STARTED AT ₹100!", msgs[0].Text)
	require.Equal(t, "🛑 SOLD FOR ₹250", msgs[len(msgs)-1].Text)

	// a second stop finds the room idle
	_, err = f.svc.Stop(ctx, "room1", f.host.ID)
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionIdle))
}

func TestAuctionService_StopWithoutBids(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(80)})
	require.NoError(t, err)

	record, err := f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)
	require.Equal(t, models.NoWinner, record.Winner)
	require.False(t, record.Sold())
	require.Empty(t, record.TopBidders)
	require.Equal(t, int64(80), record.FinalPrice)
	require.Equal(t, "Item 1", record.ItemName)
}

func TestAuctionService_NewRoundResetsBidders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(10)})
	require.NoError(t, err)
	_, err = f.ledger.PlaceBid(ctx, "room1", f.alice.ID, 50)
	require.NoError(t, err)
	_, err = f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(10)})
	require.NoError(t, err)
	_, err = f.ledger.PlaceBid(ctx, "room1", f.bob.ID, 20)
	require.NoError(t, err)
	record, err := f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)

	require.Equal(t, []models.Bidder{{User: f.bob.UserID, Amount: 20}}, record.TopBidders)
	require.Equal(t, "Item 2", record.ItemName)
}

func TestAuctionService_ConcurrentStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(100)})
	require.NoError(t, err)
	_, err = f.ledger.PlaceBid(ctx, "room1", f.alice.ID, 120)
	require.NoError(t, err)

	const callers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, idle := 0, 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := f.svc.Stop(ctx, "room1", f.host.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && record != nil:
				winners++
			case errors.Is(err, biddingerrors.ErrAuctionIdle):
				idle++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
	require.Equal(t, callers-1, idle)

	history, err := f.svc.History(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	state, err := f.svc.State(ctx, "room1")
	require.NoError(t, err)
	require.False(t, state.IsActive)
}

func TestAuctionService_Expire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	now := time.UnixMilli(1_700_000_000_000)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{DurationSeconds: 10})
	require.NoError(t, err)

	_, err = f.svc.Expire(ctx, "room1")
	require.True(t, errors.Is(err, biddingerrors.ErrNotExpired))

	now = now.Add(10 * time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	closed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Expire(ctx, "room1"); err == nil {
				mu.Lock()
				closed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, closed)

	history, err := f.svc.History(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAuctionService_Permissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Start(ctx, "room1", f.alice.ID, StartOptions{})
	require.True(t, errors.Is(err, biddingerrors.ErrNotHost))

	_, err = f.svc.Start(ctx, "room1", f.host.ID, StartOptions{DurationSeconds: -1})
	require.True(t, errors.Is(err, biddingerrors.ErrValidation))

	_, err = f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(-5)})
	require.True(t, errors.Is(err, biddingerrors.ErrInvalidPrice))

	_, err = f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
	require.NoError(t, err)

	_, err = f.svc.Stop(ctx, "room1", f.bob.ID)
	require.True(t, errors.Is(err, biddingerrors.ErrNotHost))

	err = f.svc.ShowcaseItem(ctx, "room1", f.host.ID, "Vase")
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionActive))
}

func TestAuctionService_Toggle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.ShowcaseItem(ctx, "room1", f.host.ID, "  Vase "))

	res, err := f.svc.Toggle(ctx, "room1", f.host.ID, StartOptions{})
	require.NoError(t, err)
	require.True(t, res.State.IsActive)
	require.Nil(t, res.Record)

	res, err = f.svc.Toggle(ctx, "room1", f.host.ID, StartOptions{})
	require.NoError(t, err)
	require.False(t, res.State.IsActive)
	require.NotNil(t, res.Record)
	require.Equal(t, "Vase", res.Record.ItemName)
}

func TestRankBidders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		round models.RoundBidders
		want  []models.Bidder
	}{
		{name: "empty", round: models.RoundBidders{}, want: []models.Bidder{}},
		{
			name: "by_total",
			round: models.RoundBidders{Bidders: map[string]models.RoundBidder{
				"a": {User: "a", Total: 100, Reached: 1},
				"b": {User: "b", Total: 300, Reached: 2},
				"c": {User: "c", Total: 200, Reached: 3},
			}},
			want: []models.Bidder{{User: "b", Amount: 300}, {User: "c", Amount: 200}, {User: "a", Amount: 100}},
		},
		{
			name: "tie_goes_to_first_reached",
			round: models.RoundBidders{Bidders: map[string]models.RoundBidder{
				"late":  {User: "late", Total: 200, Reached: 5},
				"early": {User: "early", Total: 200, Reached: 2},
			}},
			want: []models.Bidder{{User: "early", Amount: 200}, {User: "late", Amount: 200}},
		},
		{
			name: "top_three_only",
			round: models.RoundBidders{Bidders: map[string]models.RoundBidder{
				"a": {User: "a", Total: 1, Reached: 1},
				"b": {User: "b", Total: 2, Reached: 2},
				"c": {User: "c", Total: 3, Reached: 3},
				"d": {User: "d", Total: 4, Reached: 4},
			}},
			want: []models.Bidder{{User: "d", Amount: 4}, {User: "c", Amount: 3}, {User: "b", Amount: 2}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, RankBidders(tc.round, models.TopBidderLimit))
		})
	}
}

func TestTimeLeft(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1_000_000)

	tests := []struct {
		name  string
		state models.AuctionState
		want  int
	}{
		{name: "idle", state: models.AuctionState{EndTime: 5_000_000}, want: 0},
		{name: "full_seconds", state: models.AuctionState{IsActive: true, EndTime: 1_030_000}, want: 30},
		{name: "rounds_up", state: models.AuctionState{IsActive: true, EndTime: 1_000_001}, want: 1},
		{name: "exactly_now", state: models.AuctionState{IsActive: true, EndTime: 1_000_000}, want: 0},
		{name: "past", state: models.AuctionState{IsActive: true, EndTime: 900_000}, want: 0},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, TimeLeft(tc.state, now), tc.name)
	}
}

func TestAuctionService_RunCountdownHostExpires(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{DurationSeconds: 1, SeedPrice: seed(5)})
	require.NoError(t, err)

	var mu sync.Mutex
	var ticks []int
	done := make(chan error, 1)
	go func() {
		done <- f.svc.RunCountdown(ctx, "room1", true, func(left int) {
			mu.Lock()
			ticks = append(ticks, left)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		history, err := f.svc.History(context.Background(), "room1")
		return err == nil && len(history) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ticks)
	require.Equal(t, 0, ticks[len(ticks)-1])
	for i := 1; i < len(ticks); i++ {
		require.LessOrEqual(t, ticks[i], ticks[i-1])
	}
}

func TestAuctionService_RunCountdownViewerNeverCloses(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	now := time.UnixMilli(1_700_000_000_000)
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{DurationSeconds: 1})
	require.NoError(t, err)
	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	zero := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- f.svc.RunCountdown(ctx, "room1", false, func(left int) {
			if left == 0 {
				select {
				case zero <- struct{}{}:
				default:
				}
			}
		})
	}()

	select {
	case <-zero:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer countdown never reached zero")
	}
	cancel()
	require.NoError(t, <-done)

	state, err := f.svc.State(context.Background(), "room1")
	require.NoError(t, err)
	require.True(t, state.IsActive, "only a host observer closes an expired round")
}

// gatedRepo holds the first write made after arm until release is closed
type gatedRepo struct {
	*repository.MemoryRepo
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		MemoryRepo: repository.NewMemoryRepo(),
		reached:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (g *gatedRepo) hold() {
	if g.armed.CompareAndSwap(true, false) {
		close(g.reached)
		<-g.release
	}
}

func (g *gatedRepo) Set(ctx context.Context, path string, value []byte) error {
	g.hold()
	return g.MemoryRepo.Set(ctx, path, value)
}

func (g *gatedRepo) Update(ctx context.Context, path string, fn repository.UpdateFunc) ([]byte, error) {
	g.hold()
	return g.MemoryRepo.Update(ctx, path, fn)
}

func (g *gatedRepo) Remove(ctx context.Context, path string) error {
	g.hold()
	return g.MemoryRepo.Remove(ctx, path)
}

func TestAuctionService_LosingStartKeepsRoundBids(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newGatedRepo()
	f := newFixtureOn(t, repo)

	// the first start passes its idle check, then stalls on its first write
	repo.armed.Store(true)
	loser := make(chan error, 1)
	go func() {
		_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
		loser <- err
	}()
	<-repo.reached

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
	require.NoError(t, err)
	outcome, err := f.ledger.PlaceBid(ctx, "room1", f.alice.ID, 150)
	require.NoError(t, err)
	require.True(t, outcome.Accepted)

	close(repo.release)
	require.True(t, errors.Is(<-loser, biddingerrors.ErrAuctionActive))

	record, err := f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)
	require.Equal(t, f.alice.UserID, record.Winner)
	require.Equal(t, int64(150), record.FinalPrice)
	require.Equal(t, []models.Bidder{{User: f.alice.UserID, Amount: 150}}, record.TopBidders)
}

func TestAuctionService_StaleRoundBiddersIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	stale := models.RoundBidders{Round: "old", Seq: 1, Bidders: map[string]models.RoundBidder{
		f.bob.UserID: {User: f.bob.UserID, Total: 999, Reached: 1},
	}}
	require.NoError(t, repository.SetJSON(ctx, f.repo, repository.RoundBiddersPath("room1"), stale))

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(10)})
	require.NoError(t, err)
	record, err := f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)
	require.Equal(t, models.NoWinner, record.Winner)
	require.Empty(t, record.TopBidders)
}

// flakyHistoryRepo fails the next n writes under a room's history
type flakyHistoryRepo struct {
	*repository.MemoryRepo
	failures atomic.Int32
}

func (r *flakyHistoryRepo) Update(ctx context.Context, path string, fn repository.UpdateFunc) ([]byte, error) {
	if strings.HasPrefix(path, repository.HistoryPath("room1")+"/") && r.failures.Add(-1) >= 0 {
		return nil, fmt.Errorf("history write: %w", biddingerrors.ErrConnectivity)
	}
	return r.MemoryRepo.Update(ctx, path, fn)
}

func TestAuctionService_FailedRecordIsResumed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		resume func(ctx context.Context, f *fixture) (*models.AuctionHistoryRecord, error)
	}{
		{
			name: "stop_again",
			resume: func(ctx context.Context, f *fixture) (*models.AuctionHistoryRecord, error) {
				return f.svc.Stop(ctx, "room1", f.host.ID)
			},
		},
		{
			name: "expire",
			resume: func(ctx context.Context, f *fixture) (*models.AuctionHistoryRecord, error) {
				return f.svc.Expire(ctx, "room1")
			},
		},
		{
			name: "next_start",
			resume: func(ctx context.Context, f *fixture) (*models.AuctionHistoryRecord, error) {
				state, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
				if err != nil {
					return nil, err
				}
				if !state.IsActive {
					return nil, errors.New("round not started")
				}
				history, err := f.svc.History(ctx, "room1")
				if err != nil || len(history) == 0 {
					return nil, fmt.Errorf("history missing: %v", err)
				}
				return &history[0], nil
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := &flakyHistoryRepo{MemoryRepo: repository.NewMemoryRepo()}
			f := newFixtureOn(t, repo)

			_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{SeedPrice: seed(100), ItemName: "Clock"})
			require.NoError(t, err)
			_, err = f.ledger.PlaceBid(ctx, "room1", f.alice.ID, 150)
			require.NoError(t, err)

			repo.failures.Store(1)
			_, err = f.svc.Stop(ctx, "room1", f.host.ID)
			require.True(t, errors.Is(err, biddingerrors.ErrConnectivity))

			state, err := f.svc.State(ctx, "room1")
			require.NoError(t, err)
			require.False(t, state.IsActive)
			require.True(t, state.Unrecorded)

			// the price stays as the round left it until the record exists
			_, err = f.ledger.SetPrice(ctx, "room1", f.host.ID, 5)
			require.True(t, errors.Is(err, biddingerrors.ErrAuctionClosing))

			record, err := tt.resume(ctx, f)
			require.NoError(t, err)
			require.Equal(t, "Clock", record.ItemName)
			require.Equal(t, int64(150), record.FinalPrice)
			require.Equal(t, f.alice.UserID, record.Winner)

			history, err := f.svc.History(ctx, "room1")
			require.NoError(t, err)
			require.Len(t, history, 1)
			require.Equal(t, *record, history[0])
		})
	}
}

func TestAuctionService_RecordedRoundIsNotResumed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Start(ctx, "room1", f.host.ID, StartOptions{})
	require.NoError(t, err)
	_, err = f.svc.Stop(ctx, "room1", f.host.ID)
	require.NoError(t, err)

	state, err := f.svc.State(ctx, "room1")
	require.NoError(t, err)
	require.False(t, state.Unrecorded)

	_, err = f.svc.Expire(ctx, "room1")
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionIdle))

	history, err := f.svc.History(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}
