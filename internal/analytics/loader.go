package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"live-auction/internal/models"
	"live-auction/internal/repository"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// Source is the raw store data one report is built from
type Source struct {
	Config   *models.EventConfig
	Metadata *models.RoomMetadata
	Audience []models.AudienceRecord
	History  []models.AuctionHistoryRecord
	Events   []models.AnalyticsEvent
}

// Loader reads a room's report inputs from the store
type Loader struct {
	repo repository.RealtimeDB
}

// NewLoader creates a new Loader instance
func NewLoader(repo repository.RealtimeDB) *Loader {
	return &Loader{repo: repo}
}

// Load fetches every input for roomID concurrently. Absent paths yield empty
// values; any store failure fails the whole load.
func (l *Loader) Load(ctx context.Context, roomID string) (Source, error) {
	var src Source
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var cfg models.EventConfig
		ok, err := repository.GetJSON(gctx, l.repo, repository.EventConfigPath, &cfg)
		if err != nil {
			return fmt.Errorf("analytics: failed to read event config: %w", err)
		}
		if ok {
			src.Config = &cfg
		}
		return nil
	})

	g.Go(func() error {
		var meta rawMetadata
		ok, err := repository.GetJSON(gctx, l.repo, repository.MetadataPath(roomID), &meta)
		if err != nil {
			return fmt.Errorf("analytics: failed to read metadata: %w", err)
		}
		if ok {
			src.Metadata = &models.RoomMetadata{StartTime: int64(meta.StartTime), EndTime: int64(meta.EndTime)}
		}
		return nil
	})

	g.Go(func() error {
		_, raw, err := repository.ChildrenJSON[rawAudience](gctx, l.repo, repository.AudiencePath(roomID))
		if err != nil {
			return fmt.Errorf("analytics: failed to read audience: %w", err)
		}
		src.Audience = make([]models.AudienceRecord, 0, len(raw))
		for _, r := range raw {
			src.Audience = append(src.Audience, r.record())
		}
		return nil
	})

	g.Go(func() error {
		_, raw, err := repository.ChildrenJSON[rawHistory](gctx, l.repo, repository.HistoryPath(roomID))
		if err != nil {
			return fmt.Errorf("analytics: failed to read auction history: %w", err)
		}
		src.History = make([]models.AuctionHistoryRecord, 0, len(raw))
		for _, r := range raw {
			src.History = append(src.History, r.record())
		}
		return nil
	})

	g.Go(func() error {
		_, raw, err := repository.ChildrenJSON[rawEvent](gctx, l.repo, repository.AnalyticsPath(roomID))
		if err != nil {
			return fmt.Errorf("analytics: failed to read events: %w", err)
		}
		src.Events = make([]models.AnalyticsEvent, 0, len(raw))
		for _, r := range raw {
			src.Events = append(src.Events, r.event())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Source{}, err
	}
	return src, nil
}

// Analyze resolves the window for src and aggregates it
func Analyze(roomID string, src Source, explicit *Window, inventory map[string]int64, now time.Time, loc *time.Location) (Metrics, error) {
	w, err := ResolveWindow(explicit, src.Metadata, src.Config, now, loc)
	if err != nil {
		return Metrics{}, err
	}
	return Aggregate(Input{
		RoomID:    roomID,
		Window:    w,
		Audience:  src.Audience,
		History:   src.History,
		Events:    src.Events,
		Inventory: inventory,
		Location:  loc,
	}), nil
}

// looseInt accepts the number shapes older clients wrote: integers, floats,
// numeric strings and null. Strings read like parseInt: leading digits only.
type looseInt int64

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = looseInt(leadingInt(str))
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*n = looseInt(int64(f))
	return nil
}

func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// looseString accepts a string or a bare number
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = looseString(b)
	return nil
}

type rawMetadata struct {
	StartTime looseInt `json:"startTime"`
	EndTime   looseInt `json:"endTime"`
}

type rawAudience struct {
	UserID   string      `json:"userId"`
	Phone    looseString `json:"phone"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	JoinedAt looseInt    `json:"joinedAt"`
}

func (r rawAudience) record() models.AudienceRecord {
	return models.AudienceRecord{
		UserID:   r.UserID,
		Phone:    string(r.Phone),
		Email:    r.Email,
		Role:     r.Role,
		JoinedAt: int64(r.JoinedAt),
	}
}

type rawBidder struct {
	User   string   `json:"user"`
	Amount looseInt `json:"amount"`
}

type rawHistory struct {
	ItemName   string      `json:"itemName"`
	FinalPrice looseInt    `json:"finalPrice"`
	Winner     string      `json:"winner"`
	TopBidders []rawBidder `json:"topBidders"`
	Timestamp  looseInt    `json:"timestamp"`
}

func (r rawHistory) record() models.AuctionHistoryRecord {
	rec := models.AuctionHistoryRecord{
		ItemName:   r.ItemName,
		FinalPrice: int64(r.FinalPrice),
		Winner:     r.Winner,
		TopBidders: make([]models.Bidder, 0, len(r.TopBidders)),
		Timestamp:  int64(r.Timestamp),
	}
	for _, b := range r.TopBidders {
		rec.TopBidders = append(rec.TopBidders, models.Bidder{User: b.User, Amount: int64(b.Amount)})
	}
	return rec
}

type rawEvent struct {
	EventType string   `json:"eventType"`
	Type      string   `json:"type"`
	Timestamp looseInt `json:"timestamp"`
	User      string   `json:"user"`
	Amount    looseInt `json:"amount"`
	Duration  looseInt `json:"duration"`
}

func (r rawEvent) event() models.AnalyticsEvent {
	return models.AnalyticsEvent{
		EventType: r.EventType,
		Type:      r.Type,
		Timestamp: int64(r.Timestamp),
		User:      r.User,
		Amount:    int64(r.Amount),
		Duration:  int64(r.Duration),
	}
}
