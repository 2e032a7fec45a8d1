package repository

import (
	"context"
	"strings"
)

// Child is one immediate child of a path, in key order
type Child struct {
	Key   string
	Value []byte
}

// Snapshot is the value of a path delivered to subscribers. Value is nil when
// the path is absent. For a path holding children, Value is a JSON object of
// the children keyed by their key.
type Snapshot struct {
	Path  string
	Value []byte
}

// Exists reports whether the path held a value
func (s Snapshot) Exists() bool {
	return s.Value != nil
}

// UpdateFunc computes the new value of a path from its current value (nil when
// absent). It may run more than once. Returning an error aborts the write and
// leaves the path untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// RealtimeDB is the store contract the auction core depends on. Each path is
// linearizable on its own; nothing is atomic across paths.
type RealtimeDB interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, value []byte) error
	// Update is an atomic compare-and-apply. It returns the committed value.
	Update(ctx context.Context, path string, fn UpdateFunc) ([]byte, error)
	Remove(ctx context.Context, path string) error
	// Push creates a uniquely keyed child under prefix. Keys sort in creation order.
	Push(ctx context.Context, prefix string, value []byte) (string, error)
	Children(ctx context.Context, prefix string) ([]Child, error)
	Count(ctx context.Context, prefix string) (int, error)
	// Subscribe delivers the current value immediately and again after every
	// write to the path or anything beneath it. Slow readers only see the latest
	// value. The channel closes when ctx is done.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, error)
	Connect(ctx context.Context) (Connection, error)
	Ping(ctx context.Context) error
	Close() error
}

// Connection is one client's link to the store. Paths registered with
// OnDisconnectRemove are removed when the connection is lost.
type Connection interface {
	ID() string
	OnDisconnectRemove(ctx context.Context, path string) error
	CancelOnDisconnect(ctx context.Context, path string) error
	// Close ends the connection as if it had dropped, running every
	// registered removal.
	Close() error
}

// Paths

const EventConfigPath = "event_config"

func roomPath(roomID string) string {
	return "rooms/" + roomID
}

// AuctionPath holds the room's AuctionState
func AuctionPath(roomID string) string { return roomPath(roomID) + "/auction" }

// PricePath holds the room's current price
func PricePath(roomID string) string { return roomPath(roomID) + "/bid" }

// ItemPath holds the name of the item being showcased
func ItemPath(roomID string) string { return roomPath(roomID) + "/currentItem" }

// RoundBiddersPath holds the rolling top-bidder aggregate of the open round
func RoundBiddersPath(roomID string) string { return roomPath(roomID) + "/roundBidders" }

func ViewersPath(roomID string) string { return roomPath(roomID) + "/viewers" }

func ViewerPath(roomID, sessionID string) string { return ViewersPath(roomID) + "/" + sessionID }

func HistoryPath(roomID string) string { return roomPath(roomID) + "/auctionHistory" }

// HistoryRecordPath is the history entry of one round, keyed by its round id
func HistoryRecordPath(roomID, round string) string { return HistoryPath(roomID) + "/" + round }

func ChatPath(roomID string) string { return roomPath(roomID) + "/chat" }

func MetadataPath(roomID string) string { return roomPath(roomID) + "/metadata" }

func AudiencePath(roomID string) string { return "audience_data/" + roomID }

func AudienceRecordPath(roomID, sessionID string) string { return AudiencePath(roomID) + "/" + sessionID }

func AnalyticsPath(roomID string) string { return "analytics/" + roomID }

// splitPath breaks a slash separated path into its segments
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parentPath returns the path one level up and the last segment
func parentPath(path string) (string, string) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// related reports whether a write to one path changes what a subscriber of the
// other sees
func related(a, b string) bool {
	a, b = strings.Trim(a, "/"), strings.Trim(b, "/")
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
