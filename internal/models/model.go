package models

// Role identifies what a login session may do in a room
type Role string

const (
	RoleHost      Role = "host"
	RoleModerator Role = "moderator"
	RoleAudience  Role = "audience"
)

// IsStaff reports whether the role runs the room rather than watching it
func (r Role) IsStaff() bool {
	return r == RoleHost || r == RoleModerator
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleModerator, RoleAudience:
		return true
	}
	return false
}

// NoWinner is written as the winner of a round that closed without bids
const NoWinner = "Nobody"

// TopBidderLimit is the number of ranked bidders kept on a history record
const TopBidderLimit = 3

// AuctionState is the live phase of a room. EndTime is unix millis and only
// meaningful while IsActive is true. Round identifies the round opened last;
// Unrecorded marks a closed round whose history record is not written yet.
type AuctionState struct {
	IsActive   bool   `json:"isActive"`
	EndTime    int64  `json:"endTime"`
	Round      string `json:"round,omitempty"`
	Unrecorded bool   `json:"unrecorded,omitempty"`
}

// Bidder is one ranked entry of a round's top bidders
type Bidder struct {
	User   string `json:"user"`
	Amount int64  `json:"amount"`
}

// AuctionHistoryRecord is appended once per closed round
type AuctionHistoryRecord struct {
	ItemName   string   `json:"itemName"`
	FinalPrice int64    `json:"finalPrice"`
	Winner     string   `json:"winner"`
	TopBidders []Bidder `json:"topBidders"`
	Timestamp  int64    `json:"timestamp"`
}

// Sold reports whether the round closed with a winner
func (h AuctionHistoryRecord) Sold() bool {
	return h.Winner != "" && h.Winner != NoWinner
}

// RoundBidder is one user's running total for the in-progress round
type RoundBidder struct {
	User    string `json:"user"`
	Total   int64  `json:"total"`
	Reached int64  `json:"reached"` // sequence number at which Total was first reached
}

// RoundBidders is the rolling top-bidder aggregate of the in-progress round
type RoundBidders struct {
	Round   string                 `json:"round,omitempty"`
	Seq     int64                  `json:"seq"`
	Bidders map[string]RoundBidder `json:"bidders"`
}

// PresenceRecord marks one connected viewer session
type PresenceRecord struct {
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
	JoinedAt  int64  `json:"joinedAt"`
}

// Restrictions are moderator-controlled flags on a login session
type Restrictions struct {
	IsMuted     bool `json:"isMuted"`
	IsBidBanned bool `json:"isBidBanned"`
	IsKicked    bool `json:"isKicked"`
}

// AudienceRecord is written once per login session
type AudienceRecord struct {
	UserID       string       `json:"userId"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty"`
	Role         Role         `json:"role"`
	JoinedAt     int64        `json:"joinedAt"`
	Restrictions Restrictions `json:"restrictions"`
}

// Session is an AudienceRecord together with its store key
type Session struct {
	ID     string `json:"sessionId"`
	RoomID string `json:"roomId"`
	AudienceRecord
}

// Chat message types
const (
	ChatTypeMessage = "msg"
	ChatTypeBid     = "bid"
)

// ChatMessage is one line of a room's chat log
type ChatMessage struct {
	User   string `json:"user,omitempty"`
	Text   string `json:"text"`
	IsHost bool   `json:"isHost,omitempty"`
	Type   string `json:"type"`
}

// Analytics event types
const (
	EventBidPlaced    = "BID_PLACED"
	EventSessionStart = "SESSION_START"
	EventSessionEnd   = "SESSION_END"
)

// AnalyticsEvent is one entry of a room's raw event log
type AnalyticsEvent struct {
	EventType string `json:"eventType,omitempty"`
	Type      string `json:"type,omitempty"`
	Timestamp int64  `json:"timestamp"`
	User      string `json:"user,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Duration  int64  `json:"duration,omitempty"`
}

// Kind returns the event's type tag, whichever field carries it
func (e AnalyticsEvent) Kind() string {
	if e.EventType != "" {
		return e.EventType
	}
	return e.Type
}

// RoomMetadata bounds a room's event window in unix millis
type RoomMetadata struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

// EventConfig is the global fallback window, ISO-8601 strings
type EventConfig struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// InventoryItem is a reference starting price for a showcased item
type InventoryItem struct {
	Name          string `json:"name"`
	StartingPrice int64  `json:"startingPrice"`
}

// BidOutcome reports what happened to a bid attempt
type BidOutcome struct {
	RoomID       string `json:"room_id"`
	SessionID    string `json:"session_id"`
	Amount       int64  `json:"amount"`
	Accepted     bool   `json:"accepted"`
	CurrentPrice int64  `json:"current_price"`
}
