package analytics

import (
	"context"
	"fmt"

	"live-auction/internal/models"
	"live-auction/internal/repository"
)

// Recorder appends raw events to a room's analytics log
type Recorder struct {
	repo repository.RealtimeDB
}

// NewRecorder creates a new Recorder instance
func NewRecorder(repo repository.RealtimeDB) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one event
func (r *Recorder) Record(ctx context.Context, roomID string, ev models.AnalyticsEvent) error {
	if _, err := repository.PushJSON(ctx, r.repo, repository.AnalyticsPath(roomID), ev); err != nil {
		return fmt.Errorf("analytics: failed to record %s in room %s: %w", ev.Kind(), roomID, err)
	}
	return nil
}
