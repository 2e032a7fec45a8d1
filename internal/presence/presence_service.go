package presence

import (
	"context"
	"fmt"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/metrics"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"

	"github.com/goccy/go-json"
)

// EventLog receives session start and end events
type EventLog interface {
	Record(ctx context.Context, roomID string, ev models.AnalyticsEvent) error
}

// PresenceService tracks which viewer sessions are connected to a room. Each
// record belongs to the connection that created it: only an explicit Leave or
// that connection's loss removes it.
type PresenceService struct {
	repo   repository.RealtimeDB
	events EventLog
	now    func() time.Time
}

// NewPresenceService creates a new PresenceService instance
func NewPresenceService(repo repository.RealtimeDB, events EventLog) *PresenceService {
	return &PresenceService{repo: repo, events: events, now: time.Now}
}

// Join registers a new viewer session on conn and returns its id. The record
// is removed automatically if conn is lost before Leave.
func (s *PresenceService) Join(ctx context.Context, conn repository.Connection, roomID string, role models.Role) (string, error) {
	if role == models.RoleHost {
		return "", fmt.Errorf("presence: %w", biddingerrors.ErrHostPresence)
	}
	if !utils.ValidRoomID(roomID) {
		return "", fmt.Errorf("presence: %w - bad room id %q", biddingerrors.ErrInvalidInput, roomID)
	}

	record := models.PresenceRecord{
		SessionID: utils.GenerateID(),
		RoomID:    roomID,
		JoinedAt:  s.now().UnixMilli(),
	}
	path := repository.ViewerPath(roomID, record.SessionID)

	// the cleanup is registered first so a record never exists without one
	if err := conn.OnDisconnectRemove(ctx, path); err != nil {
		return "", fmt.Errorf("presence: failed to register cleanup: %w", err)
	}
	if err := repository.SetJSON(ctx, s.repo, path, record); err != nil {
		_ = conn.CancelOnDisconnect(ctx, path)
		return "", fmt.Errorf("presence: failed to join room %s: %w", roomID, err)
	}

	metrics.PresenceEvents.WithLabelValues("join").Inc()
	s.record(ctx, roomID, models.AnalyticsEvent{
		EventType: models.EventSessionStart,
		Timestamp: record.JoinedAt,
		User:      record.SessionID,
	})

	utils.Debug("presence: joined", map[string]any{"room_id": roomID, "session_id": record.SessionID, "conn": conn.ID()})
	return record.SessionID, nil
}

// Leave removes a viewer session. Leaving a session that is already gone is
// a no-op.
func (s *PresenceService) Leave(ctx context.Context, conn repository.Connection, roomID, sessionID string) error {
	path := repository.ViewerPath(roomID, sessionID)

	var record models.PresenceRecord
	found, err := repository.GetJSON(ctx, s.repo, path, &record)
	if err != nil {
		return fmt.Errorf("presence: failed to read session %s: %w", sessionID, err)
	}

	if found {
		if err := s.repo.Remove(ctx, path); err != nil {
			return fmt.Errorf("presence: failed to leave room %s: %w", roomID, err)
		}
	}
	if conn != nil {
		if err := conn.CancelOnDisconnect(ctx, path); err != nil {
			utils.Warn("presence: failed to cancel cleanup", map[string]any{"room_id": roomID, "session_id": sessionID, "error": err.Error()})
		}
	}
	if !found {
		return nil
	}

	metrics.PresenceEvents.WithLabelValues("leave").Inc()
	now := s.now().UnixMilli()
	s.record(ctx, roomID, models.AnalyticsEvent{
		EventType: models.EventSessionEnd,
		Timestamp: now,
		User:      sessionID,
		Duration:  max(0, now-record.JoinedAt),
	})
	return nil
}

// Count returns the number of connected viewers
func (s *PresenceService) Count(ctx context.Context, roomID string) (int, error) {
	n, err := s.repo.Count(ctx, repository.ViewersPath(roomID))
	if err != nil {
		return 0, fmt.Errorf("presence: failed to count room %s: %w", roomID, err)
	}
	return n, nil
}

// WatchCount calls fn with the viewer count now and after every change until
// ctx is done
func (s *PresenceService) WatchCount(ctx context.Context, roomID string, fn func(count int)) error {
	feed, err := s.repo.Subscribe(ctx, repository.ViewersPath(roomID))
	if err != nil {
		return fmt.Errorf("presence: failed to watch room %s: %w", roomID, err)
	}

	last := -1
	for snap := range feed {
		n := 0
		if snap.Exists() {
			var viewers map[string]json.RawMessage
			if err := json.Unmarshal(snap.Value, &viewers); err != nil {
				utils.Warn("presence: unreadable viewer set", map[string]any{"room_id": roomID, "error": err.Error()})
				continue
			}
			n = len(viewers)
		}
		if n != last {
			last = n
			fn(n)
		}
	}
	return nil
}

func (s *PresenceService) record(ctx context.Context, roomID string, ev models.AnalyticsEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, roomID, ev); err != nil {
		utils.Warn("presence: failed to record event", map[string]any{"room_id": roomID, "event": ev.Kind(), "error": err.Error()})
	}
}
